package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/engram-ai/engram/internal/domain"
	"github.com/engram-ai/engram/internal/domain/annotation"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/domain/situation"
	"github.com/engram-ai/engram/internal/domain/witness"
)

func getCacheKey(memoryID string) string {
	return "memory:" + memoryID
}

// Get implements get(memory_id, requesting_entity?) (§4.2). A witness
// check failure is reported as NotFound: Forbidden and NotFound are
// deliberately indistinguishable here to avoid leaking existence. A
// non-empty requestingEntity is checked against the witness predicate
// whether the memory came from cache or the store; an empty
// requestingEntity skips the check.
func (e *Engine) Get(ctx context.Context, memoryID, requestingEntity string) (engram.Memory, error) {
	m, hit := e.getCached(ctx, memoryID)
	if !hit {
		var err error
		m, err = e.store.Get(ctx, memoryID)
		if err != nil {
			return engram.Memory{}, err
		}
		e.putCached(ctx, memoryID, m)
	}
	if requestingEntity != "" && !witness.Allow(m, requestingEntity) {
		return engram.Memory{}, fmt.Errorf("get %s: %w", memoryID, domain.ErrNotFound)
	}
	_ = e.store.Touch(ctx, memoryID, time.Now().UTC())
	return m, nil
}

func (e *Engine) getCached(ctx context.Context, memoryID string) (engram.Memory, bool) {
	if e.cache == nil {
		return engram.Memory{}, false
	}
	raw, found, err := e.cache.Get(ctx, getCacheKey(memoryID))
	if err != nil || !found {
		return engram.Memory{}, false
	}
	var m engram.Memory
	if err := json.Unmarshal(raw, &m); err != nil {
		return engram.Memory{}, false
	}
	return m, true
}

func (e *Engine) putCached(ctx context.Context, memoryID string, m engram.Memory) {
	if e.cache == nil {
		return
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	_ = e.cache.Set(ctx, getCacheKey(memoryID), raw, getCacheTTL)
}

// Annotate implements annotate(memory_id, annotation) (§4.2): only a
// witness may annotate, and annotations never mutate the parent memory.
func (e *Engine) Annotate(ctx context.Context, memoryID, annotatorID string, a annotation.Annotation) error {
	m, err := e.store.Get(ctx, memoryID)
	if err != nil {
		return err
	}
	if !witness.Allow(m, annotatorID) {
		return fmt.Errorf("annotate %s: %w", memoryID, domain.ErrForbidden)
	}
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return e.store.Annotate(ctx, memoryID, a)
}

// Annotations lists every annotation on memoryID, subject to the same
// witness check as Get.
func (e *Engine) Annotations(ctx context.Context, memoryID, requestingEntity string) ([]annotation.Annotation, error) {
	m, err := e.store.Get(ctx, memoryID)
	if err != nil {
		return nil, err
	}
	if requestingEntity != "" && !witness.Allow(m, requestingEntity) {
		return nil, fmt.Errorf("annotations %s: %w", memoryID, domain.ErrNotFound)
	}
	return e.store.Annotations(ctx, memoryID)
}

// SituationsFor implements situations_for(entity_id) (§4.2): lists
// situations in which entity_id appears, ordered by last_activity desc.
func (e *Engine) SituationsFor(ctx context.Context, entityID string) ([]situation.Situation, error) {
	ids, err := e.store.ScanByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}

	bySituation := make(map[string][]engram.Memory)
	order := make([]string, 0)
	for _, id := range ids {
		m, err := e.store.Get(ctx, id)
		if err != nil {
			continue // deleted between scan and fetch
		}
		if _, seen := bySituation[m.SituationID]; !seen {
			order = append(order, m.SituationID)
		}
		bySituation[m.SituationID] = append(bySituation[m.SituationID], m)
	}

	situations := make([]situation.Situation, 0, len(order))
	for _, sid := range order {
		situations = append(situations, situation.DeriveFromMemories(sid, bySituation[sid]))
	}
	sort.Slice(situations, func(i, j int) bool {
		return situations[i].LastActivity.After(situations[j].LastActivity)
	})
	return situations, nil
}
