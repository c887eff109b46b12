package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/engram-ai/engram/internal/cleanup"
	"github.com/engram-ai/engram/internal/config"
	"github.com/engram-ai/engram/internal/curation"
	"github.com/engram-ai/engram/internal/engine"
	"github.com/engram-ai/engram/internal/port/recordstore"
)

// rebuilder is implemented by record stores that keep a rebuildable
// index alongside the durable rows (the postgres adapter). Handlers
// only depends on recordstore.Store, so admin/recreate-index type-
// asserts for this rather than widening the port for one operation.
type rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Handlers implements the HTTP transport (C9) over the memory engine
// (C5), curation pipeline (C6), and cleanup scheduler (C7).
type Handlers struct {
	engine    *engine.Engine
	pipeline  *curation.Pipeline
	scheduler *cleanup.Scheduler
	store     recordstore.Store
	log       *slog.Logger

	bodyLimit int64
	sanitize  config.Sanitize
	startedAt time.Time
}

// NewHandlers constructs Handlers. bodyLimit bounds every request body
// readJSON decodes (§4.6 field byte ceiling); sanitize supplies the
// comment/field byte ceilings and injection-pattern rejection that
// content-bearing endpoints apply on top of that.
func NewHandlers(eng *engine.Engine, pipeline *curation.Pipeline, sched *cleanup.Scheduler, store recordstore.Store, bodyLimit int64, sanitize config.Sanitize, log *slog.Logger) *Handlers {
	if log == nil {
		log = slog.Default()
	}
	return &Handlers{
		engine:    eng,
		pipeline:  pipeline,
		scheduler: sched,
		store:     store,
		bodyLimit: bodyLimit,
		sanitize:  sanitize,
		log:       log,
		startedAt: time.Now().UTC(),
	}
}
