package embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/engram-ai/engram/internal/resilience"
)

// breakerTimeout is how long the circuit stays open before allowing a
// half-open probe request, once the embedder has tripped the breaker.
const breakerTimeout = 30 * time.Second

// OpenAIConfig configures the production embedder client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Dims    int
}

// OpenAIEmbedder wraps go-openai's embeddings endpoint behind a circuit
// breaker, matching the shape of every other collaborator client in this
// service (§7 "UpstreamError ... retry with exponential backoff").
type OpenAIEmbedder struct {
	client  *openai.Client
	model   string
	dims    int
	breaker *resilience.Breaker
}

// NewOpenAI constructs a production embedder client. It returns an error
// if no API key is configured, since a silently-disabled embedder would
// violate the engine's requirement that store operations always produce
// a resonance vector.
func NewOpenAI(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedder: OPENAI API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dims == 0 {
		cfg.Dims = 1536
	}
	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(conf),
		model:   cfg.Model,
		dims:    cfg.Dims,
		breaker: resilience.NewBreaker(5, breakerTimeout),
	}, nil
}

func (e *OpenAIEmbedder) Dims() int { return e.dims }

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out []float32
	err := e.breaker.Execute(func() error {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return fmt.Errorf("embedder: create embeddings: %w", err)
		}
		if len(resp.Data) == 0 {
			return fmt.Errorf("embedder: no embedding returned")
		}
		out = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
