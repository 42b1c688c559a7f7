package cluster

import (
	"context"
	"fmt"

	"github.com/tubemap/backend/pkg/channel"
	"github.com/tubemap/backend/pkg/logger"
)

const defaultMaxSweepK = 20

// Pipeline runs the full clustering flow: feature extraction, embedding,
// optional relationship enhancement, clustering, and naming. Each run owns
// its feature matrix and result exclusively; the returned ClusterResult is
// immutable and safe to share.
type Pipeline struct {
	vectorizer *Vectorizer
	taxonomy   Taxonomy
}

// NewPipelineParams configures a Pipeline. Vectorizer is required; a nil
// Taxonomy falls back to the built-in vocabulary.
type NewPipelineParams struct {
	Vectorizer *Vectorizer
	Taxonomy   Taxonomy
}

// NewPipeline creates a Pipeline.
func NewPipeline(params NewPipelineParams) (*Pipeline, error) {
	if params.Vectorizer == nil {
		return nil, fmt.Errorf("pipeline requires a vectorizer")
	}
	taxonomy := params.Taxonomy
	if taxonomy == nil {
		taxonomy = DefaultTaxonomy()
	}
	return &Pipeline{
		vectorizer: params.Vectorizer,
		taxonomy:   taxonomy,
	}, nil
}

// RunParams configures one pipeline run.
type RunParams struct {
	Algorithm Algorithm
	// K is the cluster count for AlgorithmKMeans. Ignored when AutoK is set.
	K int
	// Weight blends subscription relationships into the feature vectors;
	// 0 disables enhancement. Ignored when AutoWeight is set and a graph
	// is available.
	Weight float64
	// AutoK sweeps cluster counts up to MaxSweepK instead of using K.
	AutoK bool
	// AutoWeight sweeps blend weights instead of using Weight.
	AutoWeight bool
	// MaxSweepK bounds the AutoK sweep; defaults to 20.
	MaxSweepK int
	Seed      int64
	// Eps and MinSamples tune AlgorithmDBSCAN; zero values take defaults.
	Eps        float64
	MinSamples int
}

// Run executes the pipeline over the given records and optional subscription
// graph and returns the serializable result. Input validation failures and
// embedding-model failures abort the run before any output is produced;
// per-channel gaps (missing statistics, unknown graph targets) never do.
func (p *Pipeline) Run(
	ctx context.Context,
	records []*channel.Record,
	graph channel.SubscriptionGraph,
	params RunParams,
) (*channel.ClusterResult, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no channel records supplied")
	}
	for i, rec := range records {
		if rec.ChannelID == "" {
			return nil, fmt.Errorf("channel record %d has no channel_id", i)
		}
	}
	if params.Algorithm == AlgorithmKMeans && !params.AutoK {
		if params.K < 2 {
			return nil, fmt.Errorf("cluster count must be at least 2, got %d", params.K)
		}
		if params.K >= len(records) {
			return nil, fmt.Errorf("cluster count %d must be smaller than the number of channels %d", params.K, len(records))
		}
	}

	logger.Info("Vectorizing channels", "count", len(records))
	features, err := p.vectorizer.Vectorize(ctx, records)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ChannelID
	}

	weight := params.Weight
	if params.AutoWeight && len(graph) > 0 {
		referenceK := params.K
		if referenceK < 2 || referenceK >= len(records) {
			referenceK = min(10, len(records)-1)
		}
		weight, err = OptimalWeight(features, ids, graph, referenceK, params.Seed, nil)
		if err != nil {
			return nil, err
		}
		logger.Info("Selected relationship weight", "weight", weight)
	}

	if len(graph) > 0 && weight > 0 {
		logger.Info("Enhancing embeddings with subscription relationships", "weight", weight)
		features, err = Enhance(features, ids, graph, weight)
		if err != nil {
			return nil, err
		}
	}

	k := params.K
	if params.Algorithm == AlgorithmKMeans && params.AutoK {
		maxK := params.MaxSweepK
		if maxK <= 0 {
			maxK = defaultMaxSweepK
		}
		k, err = OptimalK(features, 2, maxK, params.Seed)
		if err != nil {
			return nil, err
		}
		logger.Info("Selected cluster count", "k", k)
	}

	clustering, err := Cluster(features, EngineParams{
		Algorithm:  params.Algorithm,
		K:          k,
		Seed:       params.Seed,
		Eps:        params.Eps,
		MinSamples: params.MinSamples,
	})
	if err != nil {
		return nil, err
	}
	if clustering.Silhouette != nil {
		logger.Info("Clustering complete", "n_clusters", clustering.NClusters, "silhouette", *clustering.Silhouette)
	} else {
		logger.Info("Clustering complete", "n_clusters", clustering.NClusters, "silhouette", "n/a")
	}

	return p.buildResult(records, clustering), nil
}

// buildResult groups channels by label, attaches plot coordinates, and
// names every cluster.
func (p *Pipeline) buildResult(records []*channel.Record, clustering *Clustering) *channel.ClusterResult {
	grouped := make(map[string][]channel.PlacedRecord)
	groupedRecords := make(map[string][]*channel.Record)
	for i, rec := range records {
		key := clustering.Labels[i].String()
		grouped[key] = append(grouped[key], channel.PlacedRecord{
			Record: *rec,
			X:      clustering.Projection[i][0],
			Y:      clustering.Projection[i][1],
		})
		groupedRecords[key] = append(groupedRecords[key], rec)
	}

	names, metadata := NameClusters(groupedRecords, p.taxonomy)

	return &channel.ClusterResult{
		Algorithm:       string(clustering.Algorithm),
		NClusters:       clustering.NClusters,
		SilhouetteScore: clustering.Silhouette,
		Channels:        grouped,
		ClusterNames:    names,
		ClusterMetadata: metadata,
	}
}
