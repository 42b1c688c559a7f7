package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tubemap/backend/internal/config"
	"github.com/tubemap/backend/internal/queue"
	"github.com/tubemap/backend/internal/storage"
	"github.com/tubemap/backend/internal/store"
	"github.com/tubemap/backend/internal/store/pg"
	"github.com/tubemap/backend/internal/util"
	"github.com/tubemap/backend/pkg/ai"
	oai "github.com/tubemap/backend/pkg/ai/ollama"
	gai "github.com/tubemap/backend/pkg/ai/openai"
	"github.com/tubemap/backend/pkg/cluster"
	"github.com/tubemap/backend/pkg/logger"
	"github.com/tubemap/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// logger
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

	// Embedding client
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

	// Embedding cache (optional)
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

	archive, err := storage.NewArchive(ctx)
	if err != nil {
		logger.Fatal("Failed to create archive client", "err", err)
	}

	handler := &queue.RunHandler{
		Pipeline: pipeline,
		Store:    st,
		Defaults: cluster.RunParams{
			Algorithm:  algorithm,
			K:          cfg.NClusters,
			Weight:     cfg.Weight,
			AutoK:      cfg.AutoK,
			AutoWeight: cfg.AutoWeight,
			Seed:       cfg.Seed,
			Eps:        cfg.Eps,
			MinSamples: cfg.MinSamples,
		},
	}
	if archive != nil {
		handler.Archiver = archive
	}

	// Init rabbitmq
	conn := queue.Init()
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open channel", "err", err)
	}
	defer ch.Close()

	if err := queue.SetupQueues(ch, []string{queue.RunQueue}); err != nil {
		logger.Fatal("Failed to set up queues", "err", err)
	}

	consumerCh, err := conn.Channel()
	if err != nil {
		logger.Fatal("Failed to open consumer channel", "err", err)
	}
	defer consumerCh.Close()

	// One run at a time; clustering is CPU and embedding heavy
	if err := consumerCh.Qos(1, 0, true); err != nil {
		logger.Fatal("Failed to set QoS", "err", err)
	}

	msgs, err := consumerCh.Consume(
		queue.RunQueue,
		queue.RunQueue+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // args
	)
	if err != nil {
		logger.Fatal("Failed to start consuming", "queue", queue.RunQueue, "err", err)
	}

	logger.Info("Listening for run jobs")

	go func() {
		for {
			select {
			case <-ctx.Done():
				logger.Info("Stopping message processor")
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Info("Message channel closed", "queue", queue.RunQueue)
					return
				}

				startTime := time.Now()
				logger.Info("Received run job")

				if err := handler.Handle(ctx, msg); err != nil {
					logger.Error("Error processing run job", "err", err)
					handleProcessingError(ch, msg, queue.RunQueue)
				} else {
					if err := msg.Ack(false); err != nil {
						logger.Error("Failed to ack message", "err", err)
					}
				}

				metrics := client.GetMetrics()
				logger.Info(
					"Run finished",
					"input_tokens", metrics.InputTokens,
					"total_tokens", metrics.TotalTokens,
					"duration", time.Since(startTime).Round(time.Second).String(),
				)
				client.ResetMetrics()
			}
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, exiting...")
}

func handleProcessingError(ch *amqp.Channel, msg amqp.Delivery, queueName string) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			retries = int(v)
		}
	}

	// After 10 attempts the job goes to the dead-letter queue
	if retries >= 10 {
		dlqName := queueName + "_dlq"
		logger.Info("Sending message to DLQ", "dlq", dlqName)
		pubErr := ch.Publish(
			"",
			dlqName,
			false,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        msg.Body,
				Headers:     msg.Headers,
			},
		)
		if pubErr != nil {
			logger.Error("Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp.Table{}
	}
	headers["x-retries"] = retries + 1

	pubErr := ch.Publish(
		"",
		retryName,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
