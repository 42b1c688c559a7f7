package cluster

import (
	"fmt"
	"math"

	"github.com/tubemap/backend/pkg/channel"
	"github.com/tubemap/backend/pkg/logger"
)

// DefaultWeightCandidates are the blend weights tried by OptimalWeight.
var DefaultWeightCandidates = []float64{0.1, 0.2, 0.3, 0.4, 0.5}

// OptimalK sweeps candidate cluster counts in [kMin, kMax] and returns the
// one with the best silhouette score, reconciled with the inertia elbow by
// taking the smaller of the two candidates. Candidates whose score is
// undefined rank below every defined score. The sweep is deterministic for
// a given seed.
func OptimalK(features [][]float64, kMin, kMax int, seed int64) (int, error) {
	n := len(features)
	if kMin < 2 {
		kMin = 2
	}
	if kMax >= n {
		kMax = n - 1
	}
	if kMax < kMin {
		return 0, fmt.Errorf("no viable cluster counts for %d channels", n)
	}

	type candidate struct {
		k          int
		silhouette float64 // -Inf when undefined
		inertia    float64
	}

	candidates := make([]candidate, 0, kMax-kMin+1)
	for k := kMin; k <= kMax; k++ {
		c, err := Cluster(features, EngineParams{Algorithm: AlgorithmKMeans, K: k, Seed: seed})
		if err != nil {
			return 0, fmt.Errorf("k sweep failed at k=%d: %w", k, err)
		}
		score := math.Inf(-1)
		if c.Silhouette != nil {
			score = *c.Silhouette
		}
		candidates = append(candidates, candidate{k: k, silhouette: score, inertia: c.Inertia})
		logger.Debug("Evaluated cluster count", "k", k, "silhouette", score)
	}

	bestK := candidates[0].k
	bestScore := candidates[0].silhouette
	for _, c := range candidates[1:] {
		if c.silhouette > bestScore {
			bestScore = c.silhouette
			bestK = c.k
		}
	}

	// Elbow: the candidate with the sharpest second-difference curvature of
	// the inertia curve. Needs at least three points to be defined.
	elbowK := 0
	bestCurvature := math.Inf(-1)
	for i := 1; i < len(candidates)-1; i++ {
		curvature := candidates[i-1].inertia - 2*candidates[i].inertia + candidates[i+1].inertia
		if curvature > bestCurvature {
			bestCurvature = curvature
			elbowK = candidates[i].k
		}
	}
	if elbowK != 0 && elbowK < bestK {
		logger.Debug("Reconciling cluster count with elbow", "silhouette_k", bestK, "elbow_k", elbowK)
		bestK = elbowK
	}

	return bestK, nil
}

// OptimalWeight sweeps candidate relationship blend weights, re-running
// enhancement and clustering at a fixed reference k for each, and returns
// the weight with the best silhouette score. Undefined scores rank below
// any defined score. Only meaningful when a subscription graph exists.
func OptimalWeight(
	features [][]float64,
	ids []string,
	graph channel.SubscriptionGraph,
	referenceK int,
	seed int64,
	candidates []float64,
) (float64, error) {
	if len(graph) == 0 {
		return 0, fmt.Errorf("weight sweep requires a subscription graph")
	}
	if len(candidates) == 0 {
		candidates = DefaultWeightCandidates
	}

	bestWeight := candidates[0]
	bestScore := math.Inf(-1)

	for _, weight := range candidates {
		enhanced, err := Enhance(features, ids, graph, weight)
		if err != nil {
			return 0, err
		}
		c, err := Cluster(enhanced, EngineParams{Algorithm: AlgorithmKMeans, K: referenceK, Seed: seed})
		if err != nil {
			return 0, fmt.Errorf("weight sweep failed at weight=%v: %w", weight, err)
		}
		score := math.Inf(-1)
		if c.Silhouette != nil {
			score = *c.Silhouette
		}
		logger.Debug("Evaluated relationship weight", "weight", weight, "silhouette", score)
		if score > bestScore {
			bestScore = score
			bestWeight = weight
		}
	}

	return bestWeight, nil
}
