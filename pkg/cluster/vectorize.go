package cluster

import (
	"context"
	"fmt"
	"math"

	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/errgroup"

	"github.com/tubemap/backend/internal/util"
	"github.com/tubemap/backend/pkg/ai"
	"github.com/tubemap/backend/pkg/channel"
	"github.com/tubemap/backend/pkg/logger"
)

const (
	defaultBatchSize = 32
	defaultMaxTokens = 512

	// embedRetries covers transient endpoint failures per batch.
	embedRetries = 3

	// stdEpsilon keeps standardization defined for constant columns.
	stdEpsilon = 1e-10
)

// EmbeddingCache persists embeddings between runs, keyed by channel ID.
// Lookups and stores are best-effort: a failing cache degrades to a miss,
// never to a failed run.
type EmbeddingCache interface {
	Lookup(ctx context.Context, keys []string) (map[string][]float32, error)
	Store(ctx context.Context, entries map[string][]float32) error
}

// Vectorizer turns channel records into the FeatureVector matrix: a semantic
// embedding per channel, horizontally concatenated with the standardized
// numeric metadata block. Row i of the output always corresponds to record i.
type Vectorizer struct {
	client    ai.EmbeddingClient
	cache     EmbeddingCache
	encoder   *tiktoken.Tiktoken
	batchSize int
	maxTokens int
}

// NewVectorizerParams configures a Vectorizer. Client is required; Cache is
// optional. BatchSize bounds the number of blobs per embedding request and
// MaxTokens caps each blob's length before embedding.
type NewVectorizerParams struct {
	Client    ai.EmbeddingClient
	Cache     EmbeddingCache
	BatchSize int
	MaxTokens int
}

// NewVectorizer creates a Vectorizer. It fails if the token encoder cannot
// be loaded, since blobs could otherwise exceed the model's input limit.
func NewVectorizer(params NewVectorizerParams) (*Vectorizer, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("vectorizer requires an embedding client")
	}

	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load token encoder: %w", err)
	}

	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxTokens := params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Vectorizer{
		client:    params.Client,
		cache:     params.Cache,
		encoder:   enc,
		batchSize: batchSize,
		maxTokens: maxTokens,
	}, nil
}

// Dimensions returns the total width of produced feature vectors.
func (v *Vectorizer) Dimensions() int {
	return v.client.Dimensions() + NumMetadataFeatures
}

// Vectorize produces one feature vector per record, in record order.
func (v *Vectorizer) Vectorize(ctx context.Context, records []*channel.Record) ([][]float64, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no channel records to vectorize")
	}

	blobs := make([]string, len(records))
	numeric := make([][]float64, len(records))
	for i, rec := range records {
		text, features := Extract(rec)
		blobs[i] = v.truncate(text)
		numeric[i] = features
	}

	embeddings, err := v.embedAll(ctx, records, blobs)
	if err != nil {
		return nil, err
	}

	standardize(numeric)

	dim := v.client.Dimensions()
	matrix := make([][]float64, len(records))
	for i := range records {
		row := make([]float64, 0, dim+NumMetadataFeatures)
		for _, val := range embeddings[i] {
			row = append(row, float64(val))
		}
		for len(row) < dim {
			row = append(row, 0)
		}
		row = append(row, numeric[i]...)
		matrix[i] = row
	}
	return matrix, nil
}

// embedAll resolves an embedding per record, consulting the cache first and
// batching the misses. Each batch writes only its own output rows.
func (v *Vectorizer) embedAll(ctx context.Context, records []*channel.Record, blobs []string) ([][]float32, error) {
	out := make([][]float32, len(records))

	missing := make([]int, 0, len(records))
	if v.cache != nil {
		keys := make([]string, len(records))
		for i, rec := range records {
			keys[i] = rec.ChannelID
		}
		cached, err := v.cache.Lookup(ctx, keys)
		if err != nil {
			logger.Warn("Embedding cache lookup failed, embedding everything", "err", err)
			cached = nil
		}
		for i, rec := range records {
			if vec, ok := cached[rec.ChannelID]; ok && len(vec) == v.client.Dimensions() {
				out[i] = vec
				continue
			}
			missing = append(missing, i)
		}
	} else {
		for i := range records {
			missing = append(missing, i)
		}
	}

	if len(missing) == 0 {
		return out, nil
	}

	eg, ectx := errgroup.WithContext(ctx)
	for start := 0; start < len(missing); start += v.batchSize {
		end := min(start+v.batchSize, len(missing))
		indices := missing[start:end]
		eg.Go(func() error {
			inputs := make([][]byte, len(indices))
			for bi, idx := range indices {
				inputs[bi] = []byte(blobs[idx])
			}
			vecs, err := util.RetryWithContext(ectx, embedRetries, func(ctx context.Context) ([][]float32, error) {
				return v.client.GenerateEmbeddings(ctx, inputs)
			})
			if err != nil {
				return fmt.Errorf("embedding batch failed: %w", err)
			}
			if len(vecs) != len(indices) {
				return fmt.Errorf("embedding batch size mismatch: got %d want %d", len(vecs), len(indices))
			}
			for bi, idx := range indices {
				out[idx] = vecs[bi]
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if v.cache != nil {
		entries := make(map[string][]float32, len(missing))
		for _, idx := range missing {
			entries[records[idx].ChannelID] = out[idx]
		}
		if err := v.cache.Store(ctx, entries); err != nil {
			logger.Warn("Embedding cache store failed", "err", err)
		}
	}

	return out, nil
}

func (v *Vectorizer) truncate(text string) string {
	tokens := v.encoder.Encode(text, nil, nil)
	if len(tokens) <= v.maxTokens {
		return text
	}
	return v.encoder.Decode(tokens[:v.maxTokens])
}

// standardize scales each column to zero mean and unit variance in place.
// A small epsilon keeps constant columns from dividing by zero.
func standardize(rows [][]float64) {
	if len(rows) == 0 {
		return
	}
	cols := len(rows[0])
	n := float64(len(rows))

	for c := 0; c < cols; c++ {
		mean := 0.0
		for _, row := range rows {
			mean += row[c]
		}
		mean /= n

		variance := 0.0
		for _, row := range rows {
			d := row[c] - mean
			variance += d * d
		}
		std := math.Sqrt(variance/n) + stdEpsilon

		for _, row := range rows {
			row[c] = (row[c] - mean) / std
		}
	}
}
