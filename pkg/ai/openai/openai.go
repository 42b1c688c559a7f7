package openai

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"

	"github.com/tubemap/backend/pkg/ai"
)

const defaultMaxConcurrentRequests = 4

// EmbedOpenAIClient generates embeddings through any OpenAI-compatible
// embeddings endpoint. Create one with NewEmbedOpenAIClient.
type EmbedOpenAIClient struct {
	embeddingModel string
	dimensions     int
	timeoutMin     int

	reqLock *semaphore.Weighted

	metricsLock sync.Mutex
	metrics     ai.ModelMetrics

	Client *openai.Client
}

// NewEmbedOpenAIClientParams defines the configuration for creating a new
// EmbedOpenAIClient. EmbeddingModel and Dimensions are required; BaseURL
// and APIKey configure the endpoint.
type NewEmbedOpenAIClientParams struct {
	EmbeddingModel string
	Dimensions     int

	BaseURL string
	APIKey  string

	TimeoutMin            int
	MaxConcurrentRequests int64
}

// NewEmbedOpenAIClient creates a client for the configured embeddings
// endpoint. The model identifier and vector dimensionality are fixed for
// the lifetime of the client.
func NewEmbedOpenAIClient(params NewEmbedOpenAIClientParams) *EmbedOpenAIClient {
	opts := []option.RequestOption{}
	if params.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(params.BaseURL))
	}
	if params.APIKey != "" {
		opts = append(opts, option.WithAPIKey(params.APIKey))
	}
	client := openai.NewClient(opts...)

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentRequests
	}
	timeoutMin := params.TimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = 5
	}

	return &EmbedOpenAIClient{
		embeddingModel: params.EmbeddingModel,
		dimensions:     params.Dimensions,
		timeoutMin:     timeoutMin,
		reqLock:        semaphore.NewWeighted(maxConcurrent),
		Client:         &client,
	}
}

// Dimensions returns the fixed vector width produced by the model.
func (c *EmbedOpenAIClient) Dimensions() int {
	return c.dimensions
}

func (c *EmbedOpenAIClient) modifyMetrics(delta ai.ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()

	c.metrics.InputTokens += delta.InputTokens
	c.metrics.OutputTokens += delta.OutputTokens
	c.metrics.TotalTokens += delta.TotalTokens
	c.metrics.DurationMs += delta.DurationMs
}

// ResetMetrics clears accumulated metrics.
func (c *EmbedOpenAIClient) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ai.ModelMetrics{}
}

// GetMetrics returns the metrics accumulated since the last reset.
func (c *EmbedOpenAIClient) GetMetrics() ai.ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}
