package cluster

import (
	"fmt"

	"github.com/tubemap/backend/pkg/channel"
)

// Enhance blends each channel's feature vector with the mean vector of the
// channels it subscribes to, pulling related channels closer together before
// clustering. weight controls the blend: 0 keeps the original vectors, 1
// replaces an enhanced row entirely with its targets' mean.
//
// Edge targets that are not part of this run are dropped; channels with no
// resolvable outbound edges keep their original vector. All target means are
// computed from the input matrix, so the result is independent of row order.
func Enhance(features [][]float64, ids []string, graph channel.SubscriptionGraph, weight float64) ([][]float64, error) {
	if weight < 0 || weight > 1 {
		return nil, fmt.Errorf("relationship weight must be in [0,1], got %v", weight)
	}
	if len(features) != len(ids) {
		return nil, fmt.Errorf("feature/id length mismatch: %d features, %d ids", len(features), len(ids))
	}

	out := make([][]float64, len(features))
	for i, row := range features {
		cp := make([]float64, len(row))
		copy(cp, row)
		out[i] = cp
	}
	if weight == 0 || len(graph) == 0 {
		return out, nil
	}

	indexByID := make(map[string]int, len(ids))
	for i, id := range ids {
		indexByID[id] = i
	}

	for i, id := range ids {
		targets := graph.Outbound(id)
		if len(targets) == 0 {
			continue
		}

		mean := make([]float64, len(features[i]))
		resolved := 0
		for _, target := range targets {
			ti, ok := indexByID[target]
			if !ok {
				continue
			}
			for c, val := range features[ti] {
				mean[c] += val
			}
			resolved++
		}
		if resolved == 0 {
			continue
		}

		for c := range mean {
			mean[c] /= float64(resolved)
			out[i][c] = (1-weight)*features[i][c] + weight*mean[c]
		}
	}

	return out, nil
}
