package config

import (
	"fmt"

	"github.com/go-playground/validator"

	"github.com/tubemap/backend/internal/util"
)

// Config is the pipeline configuration surface. Values come from the
// environment (or a .env file) and are validated before any expensive work
// starts; invalid values fail fast with a descriptive error.
type Config struct {
	DataDir string `validate:"required"`

	Algorithm  string  `validate:"oneof=kmeans dbscan"`
	NClusters  int     `validate:"gte=2"`
	Weight     float64 `validate:"gte=0,lte=1"`
	Seed       int64
	Eps        float64 `validate:"gte=0"`
	MinSamples int     `validate:"gte=0"`
	AutoK      bool
	AutoWeight bool

	AIAdapter     string `validate:"oneof=openai ollama"`
	EmbedModel    string `validate:"required"`
	EmbedDim      int    `validate:"gt=0"`
	EmbedURL      string
	EmbedKey      string
	BatchSize     int `validate:"gt=0"`
	MaxTokens     int `validate:"gt=0"`
	MaxConcurrent int `validate:"gt=0"`

	// DatabaseURL enables the Postgres embedding cache when set.
	DatabaseURL string
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir: util.GetEnvString("DATA_DIR", "./output"),

		Algorithm:  util.GetEnvString("CLUSTER_ALGORITHM", "kmeans"),
		NClusters:  util.GetEnvInt("N_CLUSTERS", 10),
		Weight:     util.GetEnvNumeric("SUBSCRIPTION_WEIGHT", 0.3),
		Seed:       int64(util.GetEnvInt("CLUSTER_SEED", 42)),
		Eps:        util.GetEnvNumeric("DBSCAN_EPS", 0.5),
		MinSamples: util.GetEnvInt("DBSCAN_MIN_SAMPLES", 5),
		AutoK:      util.GetEnvBool("AUTO_K", false),
		AutoWeight: util.GetEnvBool("AUTO_WEIGHT", false),

		AIAdapter:     util.GetEnvString("AI_ADAPTER", "openai"),
		EmbedModel:    util.GetEnvString("AI_EMBED_MODEL", "text-embedding-3-small"),
		EmbedDim:      util.GetEnvInt("AI_EMBED_DIM", 1536),
		EmbedURL:      util.GetEnv("AI_EMBED_URL"),
		EmbedKey:      util.GetEnv("AI_EMBED_KEY"),
		BatchSize:     util.GetEnvInt("EMBED_BATCH_SIZE", 32),
		MaxTokens:     util.GetEnvInt("EMBED_MAX_TOKENS", 512),
		MaxConcurrent: util.GetEnvInt("EMBED_MAX_CONCURRENT", 4),

		DatabaseURL: util.GetEnv("DATABASE_URL"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
