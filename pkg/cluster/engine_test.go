package cluster

import (
	"math"
	"reflect"
	"testing"
)

func TestParseAlgorithm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Algorithm
		wantErr bool
	}{
		{input: "kmeans", want: AlgorithmKMeans},
		{input: "dbscan", want: AlgorithmDBSCAN},
		{input: "", wantErr: true},
		{input: "hdbscan", wantErr: true},
		{input: "KMeans", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseAlgorithm(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseAlgorithm(%q) should have failed", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAlgorithm(%q) error: %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("ParseAlgorithm(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

// twoBlobs returns six points forming two well-separated groups.
func twoBlobs() [][]float64 {
	return [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}
}

func TestClusterValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		features [][]float64
		params   EngineParams
	}{
		{
			name:     "empty matrix",
			features: nil,
			params:   EngineParams{Algorithm: AlgorithmKMeans, K: 2},
		},
		{
			name:     "ragged matrix",
			features: [][]float64{{1, 2}, {3}},
			params:   EngineParams{Algorithm: AlgorithmKMeans, K: 2},
		},
		{
			name:     "k below two",
			features: twoBlobs(),
			params:   EngineParams{Algorithm: AlgorithmKMeans, K: 1},
		},
		{
			name:     "k not below point count",
			features: twoBlobs(),
			params:   EngineParams{Algorithm: AlgorithmKMeans, K: 6},
		},
		{
			name:     "unknown algorithm",
			features: twoBlobs(),
			params:   EngineParams{Algorithm: "affinity"},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Cluster(tc.features, tc.params); err == nil {
				t.Fatal("Cluster() should have failed")
			}
		})
	}
}

func TestKMeansSeparatesBlobs(t *testing.T) {
	t.Parallel()

	features := twoBlobs()
	c, err := Cluster(features, EngineParams{Algorithm: AlgorithmKMeans, K: 2, Seed: 42})
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}

	if c.NClusters != 2 {
		t.Fatalf("NClusters = %d, want 2", c.NClusters)
	}
	if len(c.Labels) != len(features) {
		t.Fatalf("got %d labels for %d points", len(c.Labels), len(features))
	}

	// points within a blob share a label, points across blobs do not
	if c.Labels[0] != c.Labels[1] || c.Labels[1] != c.Labels[2] {
		t.Fatalf("first blob split across labels: %v", c.Labels[:3])
	}
	if c.Labels[3] != c.Labels[4] || c.Labels[4] != c.Labels[5] {
		t.Fatalf("second blob split across labels: %v", c.Labels[3:])
	}
	if c.Labels[0] == c.Labels[3] {
		t.Fatalf("both blobs got label %v", c.Labels[0])
	}

	if c.Silhouette == nil {
		t.Fatal("silhouette should be defined for two clusters")
	}
	if *c.Silhouette <= 0.5 || *c.Silhouette > 1 {
		t.Fatalf("silhouette = %v, want a high score for separated blobs", *c.Silhouette)
	}
}

func TestKMeansIsDeterministic(t *testing.T) {
	t.Parallel()

	features := twoBlobs()

	first, err := Cluster(features, EngineParams{Algorithm: AlgorithmKMeans, K: 2, Seed: 7})
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}
	second, err := Cluster(features, EngineParams{Algorithm: AlgorithmKMeans, K: 2, Seed: 7})
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}

	if !reflect.DeepEqual(first.Labels, second.Labels) {
		t.Fatalf("same seed, different labels: %v vs %v", first.Labels, second.Labels)
	}
	if !reflect.DeepEqual(first.Projection, second.Projection) {
		t.Fatal("same seed, different projections")
	}
}

func TestDBSCANFindsDenseGroups(t *testing.T) {
	t.Parallel()

	// five tight pairs, far apart from each other
	features := make([][]float64, 0, 10)
	for i := 0; i < 5; i++ {
		base := float64(i) * 100
		features = append(features, []float64{base, 0}, []float64{base + 0.1, 0})
	}

	c, err := Cluster(features, EngineParams{
		Algorithm:  AlgorithmDBSCAN,
		Eps:        0.5,
		MinSamples: 2,
	})
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}

	if c.NClusters != 5 {
		t.Fatalf("NClusters = %d, want 5", c.NClusters)
	}
	for i := 0; i < len(features); i += 2 {
		if c.Labels[i] != c.Labels[i+1] {
			t.Fatalf("pair %d split across labels %v and %v", i/2, c.Labels[i], c.Labels[i+1])
		}
		if c.Labels[i].IsNoise() {
			t.Fatalf("pair %d marked as noise", i/2)
		}
	}
	if c.Silhouette == nil {
		t.Fatal("silhouette should be defined for five clusters")
	}
	if *c.Silhouette <= 0 {
		t.Fatalf("silhouette = %v, want a positive score", *c.Silhouette)
	}
}

func TestDBSCANAllNoise(t *testing.T) {
	t.Parallel()

	// every point isolated; nothing reaches the core threshold
	features := [][]float64{
		{0, 0}, {100, 0}, {0, 100}, {100, 100},
	}

	c, err := Cluster(features, EngineParams{
		Algorithm:  AlgorithmDBSCAN,
		Eps:        0.5,
		MinSamples: 2,
	})
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}

	if c.NClusters != 0 {
		t.Fatalf("NClusters = %d, want 0", c.NClusters)
	}
	for i, label := range c.Labels {
		if !label.IsNoise() {
			t.Fatalf("point %d labeled %v, want noise", i, label)
		}
	}
	if c.Silhouette != nil {
		t.Fatalf("silhouette = %v, want nil for an all-noise result", *c.Silhouette)
	}
}

func TestSingleClusterHasNoSilhouette(t *testing.T) {
	t.Parallel()

	features := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1}, {0.1, 0.1},
	}

	c, err := Cluster(features, EngineParams{
		Algorithm:  AlgorithmDBSCAN,
		Eps:        1,
		MinSamples: 2,
	})
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}

	if c.NClusters != 1 {
		t.Fatalf("NClusters = %d, want 1", c.NClusters)
	}
	if c.Silhouette != nil {
		t.Fatalf("silhouette = %v, want nil for a single cluster", *c.Silhouette)
	}
}

func TestProjectionShape(t *testing.T) {
	t.Parallel()

	features := twoBlobs()
	c, err := Cluster(features, EngineParams{Algorithm: AlgorithmKMeans, K: 2, Seed: 42})
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}

	if len(c.Projection) != len(features) {
		t.Fatalf("projection has %d rows, want %d", len(c.Projection), len(features))
	}
	for i, point := range c.Projection {
		if math.IsNaN(point[0]) || math.IsNaN(point[1]) {
			t.Fatalf("projection[%d] = %v, want finite coordinates", i, point)
		}
	}

	// 2-D input is passed through unchanged
	for i, row := range features {
		if c.Projection[i][0] != row[0] || c.Projection[i][1] != row[1] {
			t.Fatalf("2-D input should project to itself: got %v, want %v", c.Projection[i], row)
		}
	}
}

func TestSilhouetteRange(t *testing.T) {
	t.Parallel()

	// overlapping points make for a poor but still defined score
	features := [][]float64{
		{0, 0}, {0.2, 0}, {0.4, 0}, {0.6, 0}, {0.8, 0}, {1, 0},
	}

	c, err := Cluster(features, EngineParams{Algorithm: AlgorithmKMeans, K: 3, Seed: 42})
	if err != nil {
		t.Fatalf("Cluster() error: %v", err)
	}
	if c.Silhouette == nil {
		t.Fatal("silhouette should be defined for three clusters")
	}
	if *c.Silhouette < -1 || *c.Silhouette > 1 {
		t.Fatalf("silhouette = %v, want a value in [-1, 1]", *c.Silhouette)
	}
}
