// Package embedder implements C1, the pluggable text-to-vector collaborator
// the engine calls to turn content text into a resonance vector.
package embedder

import "context"

// Embedder generates embedding vectors from text. Implementations are
// expected to be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dims() int
}
