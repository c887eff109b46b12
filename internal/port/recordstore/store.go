// Package recordstore defines the C3 durable-store port: the interface
// the memory engine drives, independent of the Postgres adapter that
// implements it.
package recordstore

import (
	"context"
	"time"

	"github.com/engram-ai/engram/internal/domain/annotation"
	"github.com/engram-ai/engram/internal/domain/engram"
)

// Filter narrows a KNN search to the tag/numeric predicates of §4.1,
// evaluated against each candidate's durable row.
type Filter struct {
	RequesterIDs  []string // normalized; nil means no witness restriction
	SituationType engram.SituationType
	MemoryType    engram.MemoryType
	TopicTags     []string
	After         time.Time
}

// Store is the port interface for C3: put/get/knn/scan_by_entity/annotate/delete.
type Store interface {
	Put(ctx context.Context, m engram.Memory) error
	Get(ctx context.Context, memoryID string) (engram.Memory, error)
	Touch(ctx context.Context, memoryID string, now time.Time) error
	KNN(ctx context.Context, query []float32, k int, similarityFloor float64, filter Filter) ([]engram.ScoredMemory, error)
	ScanByEntity(ctx context.Context, entityID string) ([]string, error)
	Annotate(ctx context.Context, memoryID string, a annotation.Annotation) error
	Annotations(ctx context.Context, memoryID string) ([]annotation.Annotation, error)
	Delete(ctx context.Context, memoryID string) error
	AllMemories(ctx context.Context) ([]engram.Memory, error)
	// Update overwrites content, vector, and metadata for an existing
	// memory in place, used by the cleanup scheduler's consolidation and
	// importance-decay jobs (§4.5). It never changes memory_id.
	Update(ctx context.Context, m engram.Memory) error
}
