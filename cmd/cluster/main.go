package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/tubemap/backend/internal/config"
	"github.com/tubemap/backend/internal/store"
	"github.com/tubemap/backend/internal/store/pg"
	"github.com/tubemap/backend/internal/util"
	"github.com/tubemap/backend/pkg/ai"
	oai "github.com/tubemap/backend/pkg/ai/ollama"
	gai "github.com/tubemap/backend/pkg/ai/openai"
	"github.com/tubemap/backend/pkg/channel"
	"github.com/tubemap/backend/pkg/cluster"
	"github.com/tubemap/backend/pkg/logger"
	"github.com/tubemap/backend/pkg/logger/console"
)

// One-shot run: load stored subscriptions, cluster them, write the result.
func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", "err", err)
	}

	st, err := store.New(cfg.DataDir)
	if err != nil {
		logger.Fatal("Failed to open data directory", "err", err)
	}

	records, err := st.LoadSubscriptions()
	if err != nil {
		logger.Fatal("Failed to load subscriptions", "err", err)
	}
	graph, err := st.LoadGraph()
	if err != nil {
		logger.Fatal("Failed to load subscription graph", "err", err)
	}

	var client ai.EmbeddingClient
	switch cfg.AIAdapter {
	case "ollama":
		c, err := oai.NewEmbedOllamaClient(oai.NewEmbedOllamaClientParams{
			EmbeddingModel:        cfg.EmbedModel,
			Dimensions:            cfg.EmbedDim,
			BaseURL:               cfg.EmbedURL,
			APIKey:                cfg.EmbedKey,
			MaxConcurrentRequests: int64(cfg.MaxConcurrent),
		})
		if err != nil {
			logger.Fatal("Could not create Ollama client", "err", err)
		}
		client = c
	default:
		client = gai.NewEmbedOpenAIClient(gai.NewEmbedOpenAIClientParams{
			EmbeddingModel:        cfg.EmbedModel,
			Dimensions:            cfg.EmbedDim,
			BaseURL:               cfg.EmbedURL,
			APIKey:                cfg.EmbedKey,
			MaxConcurrentRequests: int64(cfg.MaxConcurrent),
		})
	}
	if err := client.LoadModel(ctx); err != nil {
		logger.Fatal("Embedding model unavailable", "model", cfg.EmbedModel, "err", err)
	}

	var cache cluster.EmbeddingCache
	if cfg.DatabaseURL != "" {
		pgCache, err := pg.NewEmbeddingCache(ctx, pg.NewEmbeddingCacheParams{
			DatabaseURL:    cfg.DatabaseURL,
			Model:          cfg.EmbedModel,
			MigrationsPath: util.GetEnvString("MIGRATIONS_PATH", "internal/store/pg/migrations"),
		})
		if err != nil {
			logger.Fatal("Failed to connect embedding cache", "err", err)
		}
		defer pgCache.Close()
		cache = pgCache
	}

	vectorizer, err := cluster.NewVectorizer(cluster.NewVectorizerParams{
		Client:    client,
		Cache:     cache,
		BatchSize: cfg.BatchSize,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		logger.Fatal("Failed to create vectorizer", "err", err)
	}
	pipeline, err := cluster.NewPipeline(cluster.NewPipelineParams{
		Vectorizer: vectorizer,
	})
	if err != nil {
		logger.Fatal("Failed to create pipeline", "err", err)
	}

	algorithm, err := cluster.ParseAlgorithm(cfg.Algorithm)
	if err != nil {
		logger.Fatal("Invalid algorithm", "err", err)
	}

	result, err := pipeline.Run(ctx, records, graph, cluster.RunParams{
		Algorithm:  algorithm,
		K:          cfg.NClusters,
		Weight:     cfg.Weight,
		AutoK:      cfg.AutoK,
		AutoWeight: cfg.AutoWeight,
		Seed:       cfg.Seed,
		Eps:        cfg.Eps,
		MinSamples: cfg.MinSamples,
	})
	if err != nil {
		logger.Fatal("Clustering run failed", "err", err)
	}

	path, err := st.SaveClusters(result)
	if err != nil {
		logger.Fatal("Failed to save cluster result", "err", err)
	}
	logger.Info("Saved cluster result", "path", path)

	labels := make([]string, 0, len(result.Channels))
	for label := range result.Channels {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, key := range labels {
		label, err := channel.ParseLabel(key)
		if err != nil {
			continue
		}
		members := result.Channels[key]
		largest := members[0]
		for _, member := range members[1:] {
			if member.SubscriberCount > largest.SubscriberCount {
				largest = member
			}
		}
		fmt.Printf("%s: %s (%d channels, largest: %s with %s subscribers)\n",
			key, result.Name(label), len(members),
			largest.Title, util.FormatSubscriberCount(largest.SubscriberCount))
	}

	metrics := client.GetMetrics()
	logger.Info("Embedding usage", "input_tokens", metrics.InputTokens, "total_tokens", metrics.TotalTokens)
}
