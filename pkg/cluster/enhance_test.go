package cluster

import (
	"math"
	"reflect"
	"testing"

	"github.com/tubemap/backend/pkg/channel"
)

func TestEnhanceValidation(t *testing.T) {
	t.Parallel()

	features := [][]float64{{1, 2}, {3, 4}}
	ids := []string{"a", "b"}
	graph := channel.SubscriptionGraph{"a": {"b"}}

	tests := []struct {
		name   string
		ids    []string
		weight float64
	}{
		{name: "negative weight", ids: ids, weight: -0.1},
		{name: "weight above one", ids: ids, weight: 1.1},
		{name: "length mismatch", ids: []string{"a"}, weight: 0.5},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Enhance(features, tc.ids, graph, tc.weight); err == nil {
				t.Fatal("Enhance() should have failed")
			}
		})
	}
}

func TestEnhanceNoOpCases(t *testing.T) {
	t.Parallel()

	features := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	ids := []string{"a", "b", "c"}

	tests := []struct {
		name   string
		graph  channel.SubscriptionGraph
		weight float64
	}{
		{name: "zero weight", graph: channel.SubscriptionGraph{"a": {"b"}}, weight: 0},
		{name: "empty graph", graph: nil, weight: 0.5},
		{name: "only unknown targets", graph: channel.SubscriptionGraph{"a": {"zz", "yy"}}, weight: 0.5},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			out, err := Enhance(features, ids, tc.graph, tc.weight)
			if err != nil {
				t.Fatalf("Enhance() error: %v", err)
			}
			if !reflect.DeepEqual(out, features) {
				t.Fatalf("Enhance() = %v, want the input unchanged %v", out, features)
			}
			// output must be a copy, never an alias
			out[0][0] = 99
			if features[0][0] == 99 {
				t.Fatal("Enhance() aliased the input matrix")
			}
		})
	}
}

func TestEnhanceBlending(t *testing.T) {
	t.Parallel()

	features := [][]float64{
		{0, 0},
		{10, 20},
		{30, 40},
	}
	ids := []string{"a", "b", "c"}
	graph := channel.SubscriptionGraph{
		"a": {"b", "c"},
	}

	out, err := Enhance(features, ids, graph, 0.5)
	if err != nil {
		t.Fatalf("Enhance() error: %v", err)
	}

	// mean of b and c is (20, 30); blended halfway from (0, 0)
	want := []float64{10, 15}
	if !reflect.DeepEqual(out[0], want) {
		t.Fatalf("enhanced row = %v, want %v", out[0], want)
	}
	// rows without outbound edges stay untouched
	if !reflect.DeepEqual(out[1], features[1]) || !reflect.DeepEqual(out[2], features[2]) {
		t.Fatalf("rows without edges changed: %v", out[1:])
	}
}

func TestEnhanceFullWeightReplacesRow(t *testing.T) {
	t.Parallel()

	features := [][]float64{
		{1, 1},
		{5, 9},
	}
	ids := []string{"a", "b"}
	graph := channel.SubscriptionGraph{"a": {"b"}}

	out, err := Enhance(features, ids, graph, 1)
	if err != nil {
		t.Fatalf("Enhance() error: %v", err)
	}
	if !reflect.DeepEqual(out[0], features[1]) {
		t.Fatalf("weight 1 should replace the row with the target mean: got %v, want %v", out[0], features[1])
	}
}

func TestEnhanceUnknownTargetsDropped(t *testing.T) {
	t.Parallel()

	features := [][]float64{
		{0, 0},
		{8, 8},
	}
	ids := []string{"a", "b"}
	graph := channel.SubscriptionGraph{
		"a": {"b", "not-in-run", "also-missing"},
	}

	out, err := Enhance(features, ids, graph, 0.5)
	if err != nil {
		t.Fatalf("Enhance() error: %v", err)
	}
	// the mean covers only the resolvable target b
	want := []float64{4, 4}
	if !reflect.DeepEqual(out[0], want) {
		t.Fatalf("enhanced row = %v, want %v", out[0], want)
	}
}

func TestEnhanceUsesOriginalMatrix(t *testing.T) {
	t.Parallel()

	// a follows b and b follows c; b's enhancement must not leak into a's
	features := [][]float64{
		{0},
		{10},
		{100},
	}
	ids := []string{"a", "b", "c"}
	graph := channel.SubscriptionGraph{
		"a": {"b"},
		"b": {"c"},
	}

	out, err := Enhance(features, ids, graph, 0.5)
	if err != nil {
		t.Fatalf("Enhance() error: %v", err)
	}

	if got, want := out[0][0], 5.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("a blended against b's enhanced row: got %v, want %v", got, want)
	}
	if got, want := out[1][0], 55.0; math.Abs(got-want) > 1e-12 {
		t.Fatalf("b = %v, want %v", got, want)
	}
}
