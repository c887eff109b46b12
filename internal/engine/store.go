package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/engram-ai/engram/internal/domain"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/domain/witness"
)

// StoreSingle implements store_single: a legacy single-agent memory is
// constructed with witnessed_by = {agent_id} and situation_type
// "legacy_single_agent" unless the caller overrides it (§4.2, and the
// unification note of §9: single-agent memories are multi-entity
// memories with |witnessed_by| = 1).
func (e *Engine) StoreSingle(ctx context.Context, req StoreSingleRequest) (StoreResult, error) {
	if req.Metadata.AgentID == "" {
		return StoreResult{}, fmt.Errorf("%w: agent_id is required for store_single", domain.ErrValidation)
	}
	situationType := req.SituationType
	if situationType == "" {
		situationType = engram.SituationLegacySingleAgent
	}

	m := engram.Memory{
		Content:       req.Content,
		Vector:        req.PrimaryVector,
		Metadata:      req.Metadata,
		Tags:          req.Tags,
		WitnessedBy:   []string{req.Metadata.AgentID},
		SituationID:   engram.NewMemoryID(),
		SituationType: situationType,
		PrivacyLevel:  engram.PrivacyPersonal,
		Causality:     req.Causality,
	}
	return e.put(ctx, m)
}

// StoreMulti implements store_multi: a witness-scoped memory shared by
// one or more entities in a situation (§4.2).
func (e *Engine) StoreMulti(ctx context.Context, req StoreMultiRequest) (StoreResult, error) {
	if len(req.WitnessedBy) == 0 {
		return StoreResult{}, fmt.Errorf("%w: witnessed_by must be non-empty", domain.ErrValidation)
	}
	normalized := witness.Union(req.WitnessedBy)

	privacy := req.PrivacyLevel
	if privacy == "" {
		privacy = engram.PrivacyParticipantsOnly
	}
	situationID := req.SituationID
	if situationID == "" {
		situationID = engram.NewMemoryID()
	}

	m := engram.Memory{
		Content:       req.Content,
		Vector:        req.PrimaryVector,
		Metadata:      req.Metadata,
		WitnessedBy:   normalized,
		SituationID:   situationID,
		SituationType: req.SituationType,
		PrivacyLevel:  privacy,
		Causality:     req.Causality,
		Retention:     req.Retention,
	}
	return e.put(ctx, m)
}

func (e *Engine) put(ctx context.Context, m engram.Memory) (StoreResult, error) {
	m.MemoryID = engram.NewMemoryID()
	m.CreatedAt = time.Now().UTC()
	if m.Metadata.Timestamp.IsZero() {
		m.Metadata.Timestamp = m.CreatedAt
	}

	if err := m.Validate(e.vectorDim); err != nil {
		return StoreResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := e.store.Put(ctx, m); err != nil {
		return StoreResult{}, err
	}

	e.log.Info("memory stored", "memory_id", m.MemoryID, "situation_id", m.SituationID, "witness_count", len(m.WitnessedBy))
	return StoreResult{MemoryID: m.MemoryID, Status: "stored", Timestamp: m.CreatedAt}, nil
}
