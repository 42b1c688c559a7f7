package cluster

import (
	"math"
	"reflect"
	"testing"

	"github.com/tubemap/backend/pkg/channel"
)

func TestExtractText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  *channel.Record
		want string
	}{
		{
			name: "title and description",
			rec: &channel.Record{
				Title:       "Tech Review",
				Description: "Gadget reviews weekly",
			},
			want: "Tech Review - Gadget reviews weekly",
		},
		{
			name: "topics appended as readable names",
			rec: &channel.Record{
				Title:       "Science Lab",
				Description: "Experiments",
				Topics: []string{
					"https://en.wikipedia.org/wiki/Physics",
					"https://en.wikipedia.org/wiki/Space_exploration",
				},
			},
			want: "Science Lab - Experiments - Topics: Physics, Space exploration",
		},
		{
			name: "empty record still separable",
			rec:  &channel.Record{},
			want: " - ",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractText(tc.rec)
			if got != tc.want {
				t.Fatalf("ExtractText() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractNumeric(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rec  *channel.Record
		want []float64
	}{
		{
			name: "missing statistics become zeros",
			rec:  &channel.Record{Title: "Empty"},
			want: []float64{0, 0, 0, 0, 0},
		},
		{
			name: "counts are log scaled",
			rec: &channel.Record{
				SubscriberCount: 1000,
				VideoCount:      100,
				ViewCount:       50000,
			},
			want: []float64{math.Log1p(1000), math.Log1p(100), 500, 0, 0},
		},
		{
			name: "views per video guards against zero videos",
			rec: &channel.Record{
				ViewCount: 400,
			},
			want: []float64{0, 0, 400, 0, 0},
		},
		{
			name: "social platform mention sets the flag",
			rec: &channel.Record{
				Description: "Follow me on Twitter for more",
			},
			want: []float64{0, 0, 0, 1, 0},
		},
		{
			name: "website link sets the flag",
			rec: &channel.Record{
				Description: "shop at https://example.com",
			},
			want: []float64{0, 0, 0, 0, 1},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractNumeric(tc.rec)
			if len(got) != NumMetadataFeatures {
				t.Fatalf("ExtractNumeric() width = %d, want %d", len(got), NumMetadataFeatures)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ExtractNumeric() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	t.Parallel()

	rec := &channel.Record{
		Title:           "Cooking Corner",
		Description:     "Recipes and baking",
		SubscriberCount: 42,
	}

	text1, numeric1 := Extract(rec)
	text2, numeric2 := Extract(rec)

	if text1 != text2 {
		t.Fatalf("Extract() text changed between calls: %q vs %q", text1, text2)
	}
	if !reflect.DeepEqual(numeric1, numeric2) {
		t.Fatalf("Extract() numeric features changed between calls: %v vs %v", numeric1, numeric2)
	}
	if rec.VectorizedText != text1 {
		t.Fatalf("Extract() did not attach VectorizedText: got %q, want %q", rec.VectorizedText, text1)
	}
}
