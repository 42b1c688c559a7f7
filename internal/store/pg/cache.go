package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/tubemap/backend/pkg/logger"
)

// EmbeddingCache stores channel embeddings in Postgres, keyed by channel ID
// and model identifier, so repeat runs skip the embedding API for unchanged
// channels. Embeddings from one model are never served to another.
type EmbeddingCache struct {
	pool  *pgxpool.Pool
	model string
}

// NewEmbeddingCacheParams configures an EmbeddingCache. MigrationsPath
// points at the SQL migration directory; empty skips migration.
type NewEmbeddingCacheParams struct {
	DatabaseURL    string
	Model          string
	MigrationsPath string
}

// NewEmbeddingCache connects to Postgres, applies pending migrations, and
// returns a cache bound to the given model identifier.
func NewEmbeddingCache(ctx context.Context, params NewEmbeddingCacheParams) (*EmbeddingCache, error) {
	if params.DatabaseURL == "" {
		return nil, fmt.Errorf("embedding cache requires a database URL")
	}
	if params.Model == "" {
		return nil, fmt.Errorf("embedding cache requires a model identifier")
	}

	if params.MigrationsPath != "" {
		m, err := migrate.New("file://"+params.MigrationsPath, params.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare migrations: %w", err)
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	cfg, err := pgxpool.ParseConfig(params.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &EmbeddingCache{pool: pool, model: params.Model}, nil
}

// Lookup returns the cached embeddings for the given channel IDs. Missing
// channels are simply absent from the result.
func (c *EmbeddingCache) Lookup(ctx context.Context, keys []string) (map[string][]float32, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	rows, err := c.pool.Query(ctx,
		`SELECT channel_id, embedding
		 FROM channel_embeddings
		 WHERE model = $1 AND channel_id = ANY($2)`,
		c.model, keys,
	)
	if err != nil {
		return nil, fmt.Errorf("embedding cache lookup failed: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]float32)
	for rows.Next() {
		var id string
		var vec pgvector.Vector
		if err := rows.Scan(&id, &vec); err != nil {
			return nil, fmt.Errorf("embedding cache scan failed: %w", err)
		}
		out[id] = vec.Slice()
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logger.Debug("Embedding cache lookup", "requested", len(keys), "hits", len(out))
	return out, nil
}

// Store upserts embeddings for the cache's model.
func (c *EmbeddingCache) Store(ctx context.Context, entries map[string][]float32) error {
	if len(entries) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for id, vec := range entries {
		batch.Queue(
			`INSERT INTO channel_embeddings (channel_id, model, embedding, updated_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (channel_id, model)
			 DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = now()`,
			id, c.model, pgvector.NewVector(vec),
		)
	}

	results := c.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("embedding cache store failed: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (c *EmbeddingCache) Close() {
	c.pool.Close()
}
