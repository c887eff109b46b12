// Package engine implements C5: the memory engine that orchestrates
// store, retrieve, annotate and situation lookup over the C3 record
// store for both single-agent and multi-entity memory models.
package engine

import (
	"log/slog"
	"time"

	"github.com/engram-ai/engram/internal/collaborator/embedder"
	"github.com/engram-ai/engram/internal/port/cache"
	"github.com/engram-ai/engram/internal/port/recordstore"
)

// getCacheTTL bounds how long a cached memory blob may outlive writes
// that bypass the engine (§5's cleanup jobs touch the store directly),
// so a stale hit self-heals instead of persisting indefinitely.
const getCacheTTL = 5 * time.Minute

// Engine is the single service object both transports (HTTP, MCP) drive.
type Engine struct {
	store     recordstore.Store
	embedder  embedder.Embedder
	vectorDim int
	log       *slog.Logger

	// cache is the optional L1 read-through cache over Get (§5: "a
	// small LRU over get(memory_id)"). Nil disables it.
	cache cache.Cache
}

// New constructs an Engine. emb is kept on the Engine, but none of its
// methods call it; requests arrive with their vectors already computed.
// c may be nil, in which case Get always reads through to the store.
func New(store recordstore.Store, emb embedder.Embedder, vectorDim int, log *slog.Logger, c cache.Cache) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{store: store, embedder: emb, vectorDim: vectorDim, log: log, cache: c}
}
