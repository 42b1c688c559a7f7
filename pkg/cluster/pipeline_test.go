package cluster

import (
	"context"
	"testing"

	"github.com/tubemap/backend/pkg/channel"
)

func newTestPipeline(t *testing.T, dims int) *Pipeline {
	t.Helper()

	v, err := NewVectorizer(NewVectorizerParams{Client: &fakeEmbedClient{dims: dims}})
	if err != nil {
		t.Fatalf("NewVectorizer() error: %v", err)
	}
	p, err := NewPipeline(NewPipelineParams{Vectorizer: v})
	if err != nil {
		t.Fatalf("NewPipeline() error: %v", err)
	}
	return p
}

func TestPipelineRunKMeans(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, 3)
	records := testRecords(8)

	result, err := p.Run(context.Background(), records, nil, RunParams{
		Algorithm: AlgorithmKMeans,
		K:         2,
		Seed:      42,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.Algorithm != "kmeans" {
		t.Fatalf("Algorithm = %q, want kmeans", result.Algorithm)
	}
	if result.NClusters != 2 {
		t.Fatalf("NClusters = %d, want 2", result.NClusters)
	}
	if result.Size() != len(records) {
		t.Fatalf("result holds %d channels, want %d", result.Size(), len(records))
	}
	if len(result.ClusterNames) != len(result.Channels) {
		t.Fatalf("got %d names for %d clusters", len(result.ClusterNames), len(result.Channels))
	}
	for label, members := range result.Channels {
		if _, err := channel.ParseLabel(label); err != nil {
			t.Fatalf("invalid cluster key %q: %v", label, err)
		}
		if len(members) == 0 {
			t.Fatalf("cluster %q is empty", label)
		}
		if _, ok := result.ClusterMetadata[label]; !ok {
			t.Fatalf("cluster %q missing metadata", label)
		}
	}
}

func TestPipelineRunValidation(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, 3)
	ctx := context.Background()

	tests := []struct {
		name    string
		records []*channel.Record
		params  RunParams
	}{
		{
			name:    "no records",
			records: nil,
			params:  RunParams{Algorithm: AlgorithmKMeans, K: 2},
		},
		{
			name:    "record without channel id",
			records: []*channel.Record{{Title: "anonymous"}},
			params:  RunParams{Algorithm: AlgorithmKMeans, K: 2},
		},
		{
			name:    "k too small",
			records: testRecords(5),
			params:  RunParams{Algorithm: AlgorithmKMeans, K: 1},
		},
		{
			name:    "k not below record count",
			records: testRecords(5),
			params:  RunParams{Algorithm: AlgorithmKMeans, K: 5},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := p.Run(ctx, tc.records, nil, tc.params); err == nil {
				t.Fatal("Run() should have failed")
			}
		})
	}
}

func TestPipelineRunDBSCANKeepsNoiseBucket(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, 2)
	records := testRecords(6)

	// an eps this small leaves every channel in the noise bucket
	result, err := p.Run(context.Background(), records, nil, RunParams{
		Algorithm:  AlgorithmDBSCAN,
		Eps:        1e-9,
		MinSamples: 2,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.NClusters != 0 {
		t.Fatalf("NClusters = %d, want 0", result.NClusters)
	}
	if result.SilhouetteScore != nil {
		t.Fatalf("SilhouetteScore = %v, want nil", *result.SilhouetteScore)
	}
	noise, ok := result.Channels["-1"]
	if !ok {
		t.Fatal(`noise channels missing under the "-1" key`)
	}
	if len(noise) != len(records) {
		t.Fatalf("noise bucket holds %d channels, want %d", len(noise), len(records))
	}
}

func TestPipelineRunWithGraph(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, 3)
	records := testRecords(6)
	graph := channel.SubscriptionGraph{
		records[0].ChannelID: {records[1].ChannelID, records[2].ChannelID},
		records[3].ChannelID: {records[4].ChannelID},
	}

	result, err := p.Run(context.Background(), records, graph, RunParams{
		Algorithm: AlgorithmKMeans,
		K:         2,
		Weight:    0.3,
		Seed:      42,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Size() != len(records) {
		t.Fatalf("result holds %d channels, want %d", result.Size(), len(records))
	}
}

func TestPipelineResultRoundTrips(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, 3)
	records := testRecords(6)

	result, err := p.Run(context.Background(), records, nil, RunParams{
		Algorithm: AlgorithmKMeans,
		K:         2,
		Seed:      42,
	})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	data, err := result.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	restored, err := channel.UnmarshalClusterResult(data)
	if err != nil {
		t.Fatalf("UnmarshalClusterResult() error: %v", err)
	}

	if restored.Algorithm != result.Algorithm || restored.NClusters != result.NClusters {
		t.Fatalf("round trip changed the header: %+v vs %+v", restored, result)
	}
	if restored.Size() != result.Size() {
		t.Fatalf("round trip changed the channel count: %d vs %d", restored.Size(), result.Size())
	}
	for label, name := range result.ClusterNames {
		if restored.ClusterNames[label] != name {
			t.Fatalf("round trip changed name of %q: %q vs %q", label, restored.ClusterNames[label], name)
		}
	}
}
