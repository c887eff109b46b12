package main

import (
	"fmt"

	"github.com/engram-ai/engram/internal/collaborator/curator"
	"github.com/engram-ai/engram/internal/collaborator/embedder"
	"github.com/engram-ai/engram/internal/config"
)

// buildEmbedder selects the C1 collaborator implementation from
// cfg.Provider. "fake" is the deterministic default so engramd runs
// without external credentials; "openai" wires go-openai behind the
// same interface.
func buildEmbedder(cfg config.Embedding) (embedder.Embedder, error) {
	switch cfg.Provider {
	case "", "fake":
		return embedder.NewFake(cfg.Dims), nil
	case "openai":
		return embedder.NewOpenAI(embedder.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Dims:    cfg.Dims,
		})
	default:
		return nil, fmt.Errorf("embedding: unknown provider %q", cfg.Provider)
	}
}

// buildCurator selects the C2 collaborator implementation from
// cfg.Provider, mirroring buildEmbedder.
func buildCurator(cfg config.Curation) (curator.Curator, error) {
	switch cfg.Provider {
	case "", "fake":
		return curator.NewFake(), nil
	case "openai":
		return curator.NewOpenAI(curator.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	default:
		return nil, fmt.Errorf("curation: unknown provider %q", cfg.Provider)
	}
}
