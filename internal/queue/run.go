package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"github.com/tubemap/backend/internal/store"
	"github.com/tubemap/backend/internal/util"
	"github.com/tubemap/backend/pkg/cluster"
	"github.com/tubemap/backend/pkg/logger"
)

// RunJob is one clustering run request. Zero-valued fields fall back to the
// worker's configured defaults.
type RunJob struct {
	RunID      string  `json:"run_id"`
	Algorithm  string  `json:"algorithm,omitempty"`
	NClusters  int     `json:"n_clusters,omitempty"`
	Weight     float64 `json:"weight,omitempty"`
	AutoK      bool    `json:"auto_k,omitempty"`
	AutoWeight bool    `json:"auto_weight,omitempty"`
	Seed       int64   `json:"seed,omitempty"`
}

// PublishRun enqueues a run request for the worker.
func PublishRun(ch *amqp091.Channel, job RunJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode run job: %w", err)
	}
	return PublishFIFO(ch, RunQueue, data)
}

// ResultArchiver uploads a persisted result somewhere durable; optional.
type ResultArchiver interface {
	PutResult(ctx context.Context, key string, data []byte) error
}

// RunHandler executes clustering run jobs against the local subscription
// store.
type RunHandler struct {
	Pipeline *cluster.Pipeline
	Store    *store.Store
	Archiver ResultArchiver
	Defaults cluster.RunParams
}

// Handle loads the saved subscriptions and graph, runs the pipeline with the
// job's overrides, persists the result, and archives it when an archiver is
// configured.
func (h *RunHandler) Handle(ctx context.Context, msg amqp091.Delivery) error {
	var job RunJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		return fmt.Errorf("malformed run job: %w", err)
	}

	logger.Info("Starting clustering run", "run_id", job.RunID)

	records, err := h.Store.LoadSubscriptions()
	if err != nil {
		return err
	}
	graph, err := h.Store.LoadGraph()
	if err != nil {
		return err
	}

	params := h.Defaults
	if job.Algorithm != "" {
		algo, err := cluster.ParseAlgorithm(job.Algorithm)
		if err != nil {
			return err
		}
		params.Algorithm = algo
	}
	if job.NClusters != 0 {
		params.K = job.NClusters
	}
	if job.Weight != 0 {
		params.Weight = job.Weight
	}
	if job.Seed != 0 {
		params.Seed = job.Seed
	}
	params.AutoK = params.AutoK || job.AutoK
	params.AutoWeight = params.AutoWeight || job.AutoWeight

	result, err := h.Pipeline.Run(ctx, records, graph, params)
	if err != nil {
		return err
	}

	path, err := h.Store.SaveClusters(result)
	if err != nil {
		return err
	}
	logger.Info("Clustering run complete", "run_id", job.RunID, "path", path, "n_clusters", result.NClusters)

	if h.Archiver != nil {
		data, err := result.Marshal()
		if err != nil {
			return err
		}
		key := fmt.Sprintf("clusters/%s.json", job.RunID)
		err = util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
			return h.Archiver.PutResult(ctx, key, data)
		})
		if err != nil {
			// the run already succeeded locally; archive failure is not fatal
			logger.Warn("Failed to archive cluster result", "run_id", job.RunID, "err", err)
		}
	}

	return nil
}
