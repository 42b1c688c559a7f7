package ai

import "context"

// ModelMetrics contains performance metrics from embedding operations.
type ModelMetrics struct {
	InputTokens  int   `json:"input_tokens"`
	OutputTokens int   `json:"output_tokens"`
	TotalTokens  int   `json:"total_tokens"`
	DurationMs   int64 `json:"duration_ms"`
}

// EmbeddingClient maps text to fixed-width dense vectors using a pretrained
// embedding model. A client is constructed once per process with an explicit
// model identifier and passed into the pipeline; nothing is looked up from
// ambient state.
//
// Implementations must preserve input order: output row i always corresponds
// to input i, regardless of how requests are batched internally.
type EmbeddingClient interface {
	// GenerateEmbedding embeds a single input. Empty or whitespace-only
	// input yields a zero vector of the configured dimensionality.
	GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error)

	// GenerateEmbeddings embeds a batch of inputs in input order.
	GenerateEmbeddings(ctx context.Context, inputs [][]byte) ([][]float32, error)

	// Dimensions returns the fixed vector width produced by the model.
	Dimensions() int

	// LoadModel verifies the embedding model is reachable. Callers treat a
	// failure as a fatal configuration error, surfaced before any expensive
	// work starts.
	LoadModel(ctx context.Context) error

	ResetMetrics()
	GetMetrics() ModelMetrics
}
