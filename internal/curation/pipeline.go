// Package curation implements C6, the AI-curation pipeline: it turns a
// raw conversation turn into zero or more stored memories by asking the
// curator collaborator (C2) to decompose the turn, applying the
// admission rule and retention mapping of internal/domain/curation, and
// handing survivors to the memory engine (C5) to embed and store.
package curation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/engram-ai/engram/internal/collaborator/curator"
	"github.com/engram-ai/engram/internal/collaborator/embedder"
	"github.com/engram-ai/engram/internal/domain/curation"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/engine"
)

// Turn is the input to Process: a conversation exchange plus the
// witnesses it should be stored against and the curation overrides of
// §4.3 (force_storage, analyze_only).
type Turn struct {
	AgentID              string
	WitnessedBy          []string
	SituationType        engram.SituationType
	SituationID          string
	UserInput            string
	AgentResponse        string
	ConversationContext  string
	ExistingMemoryCount  int
	PriorityTopics       []string
	RetentionBias        string
	PrivacySensitivity   string
	ForceStorage         bool
	AnalyzeOnly          bool
}

// Report is the outcome of Process: the decisions made for every
// observation the curator emitted (or the single force-stored one),
// whether or not each was admitted.
type Report struct {
	Decisions      []curation.Decision
	StoredMemories []string
	UsedFallback   bool
}

// Pipeline wires the curator and embedder collaborators to the memory
// engine, implementing the store side of the C6 contract.
type Pipeline struct {
	curator  curator.Curator
	embedder embedder.Embedder
	engine   *engine.Engine
	log      *slog.Logger
}

// New constructs a Pipeline.
func New(c curator.Curator, e embedder.Embedder, eng *engine.Engine, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{curator: c, embedder: e, engine: eng, log: log}
}

// Process implements the curated store operation (§4.3):
//  1. force_storage bypasses curation and admission entirely, storing
//     exactly one memory composed of user_input and agent_response.
//  2. Otherwise the curator decomposes the turn into observations; a
//     curator failure falls back to curation.FallbackObservation so the
//     turn is never silently dropped.
//  3. Each observation passes through curation.Admit.
//  4. analyze_only stops here and returns the report without storing.
//  5. Admitted observations are embedded and stored concurrently.
func (p *Pipeline) Process(ctx context.Context, turn Turn) (Report, error) {
	if turn.ForceStorage {
		return p.forceStore(ctx, turn)
	}

	observations, usedFallback, err := p.observe(ctx, turn)
	if err != nil {
		return Report{}, err
	}

	decisions := make([]curation.Decision, len(observations))
	admitted := make([]int, 0, len(observations))
	for i, o := range observations {
		d := curation.Decision{Observation: o}
		if curation.Admit(o) {
			d.Admitted = true
			d.Retention = curation.RetentionPolicyFor(o.StorageType)
		} else {
			d.Reason = admissionRejectionReason(o)
		}
		decisions[i] = d
		if d.Admitted {
			admitted = append(admitted, i)
		}
	}

	report := Report{Decisions: decisions, UsedFallback: usedFallback}
	if turn.AnalyzeOnly {
		return report, nil
	}

	ids, err := p.storeAdmitted(ctx, turn, decisions, admitted)
	if err != nil {
		return Report{}, err
	}
	report.StoredMemories = ids
	report.Decisions = decisions
	return report, nil
}

// observe asks the curator to decompose the turn, falling back to a
// single degraded observation if the curator call fails (§7 UpstreamError
// local recovery: curation always admits something rather than dropping
// the turn on the floor).
func (p *Pipeline) observe(ctx context.Context, turn Turn) ([]curation.Observation, bool, error) {
	observations, err := p.curator.Analyze(ctx, curator.Turn{
		UserInput:           turn.UserInput,
		AgentResponse:       turn.AgentResponse,
		ConversationContext: turn.ConversationContext,
		ExistingMemoryCount: turn.ExistingMemoryCount,
		PriorityTopics:      turn.PriorityTopics,
		RetentionBias:       turn.RetentionBias,
		PrivacySensitivity:  turn.PrivacySensitivity,
	})
	if err != nil {
		p.log.Warn("curator analyze failed, falling back to verbatim observation", "error", err)
		return []curation.Observation{curation.FallbackObservation(turn.UserInput)}, true, nil
	}
	return observations, false, nil
}

// storeAdmitted embeds and stores every admitted observation
// concurrently, since each store is independent and network-bound.
func (p *Pipeline) storeAdmitted(ctx context.Context, turn Turn, decisions []curation.Decision, admitted []int) ([]string, error) {
	ids := make([]string, len(admitted))
	g, gctx := errgroup.WithContext(ctx)
	for slot, idx := range admitted {
		slot, idx := slot, idx
		g.Go(func() error {
			id, err := p.storeOne(gctx, turn, decisions[idx].Observation, decisions[idx].Retention)
			if err != nil {
				return fmt.Errorf("store observation %d: %w", idx, err)
			}
			ids[slot] = id
			decisions[idx].MemoryID = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (p *Pipeline) storeOne(ctx context.Context, turn Turn, o curation.Observation, retention curation.RetentionPolicy) (string, error) {
	vector, err := p.embedder.Embed(ctx, o.Content)
	if err != nil {
		return "", fmt.Errorf("%w", err)
	}

	privacy := o.PrivacyLevel
	if privacy == "" {
		privacy = engram.PrivacyParticipantsOnly
	}

	decay := engram.DecayNone
	if retention != curation.RetentionPermanent {
		decay = engram.DecayLogarithmic
	}

	res, err := p.engine.StoreMulti(ctx, engine.StoreMultiRequest{
		WitnessedBy:   turn.WitnessedBy,
		SituationType: turn.SituationType,
		SituationID:   turn.SituationID,
		PrivacyLevel:  privacy,
		Content:       engram.Content{Text: o.Content},
		PrimaryVector: vector,
		Metadata: engram.Metadata{
			Timestamp:  time.Now().UTC(),
			MemoryType: o.MemoryType,
			AgentID:    turn.AgentID,
			Confidence: o.ConfidenceScore,
			Importance: o.ContextualValue,
		},
		Causality: engram.Causality{
			SynthesisType: "curated",
			Reasoning:     o.Rationale,
		},
		Retention: engram.Retention{
			TTLSeconds:    int64(curation.TTLFor(retention).Seconds()),
			DecayFunction: decay,
		},
	})
	if err != nil {
		return "", err
	}
	return res.MemoryID, nil
}

// forceStore implements the force_storage override (§4.3): curation and
// admission are both bypassed, and exactly one memory is stored from the
// concatenation of user_input and agent_response.
func (p *Pipeline) forceStore(ctx context.Context, turn Turn) (Report, error) {
	text := turn.UserInput
	if turn.AgentResponse != "" {
		text = turn.UserInput + "\n" + turn.AgentResponse
	}

	o := curation.Observation{
		MemoryType:      engram.TypeConversation,
		StorageType:     curation.StorageContext,
		Content:         text,
		ConfidenceScore: 1.0,
		ContextualValue: 1.0,
		PrivacyLevel:    engram.PrivacyParticipantsOnly,
		Rationale:       "force_storage override: curation and admission bypassed",
	}
	decision := curation.Decision{Observation: o, Admitted: true, Retention: curation.RetentionPermanent}

	if turn.AnalyzeOnly {
		return Report{Decisions: []curation.Decision{decision}}, nil
	}

	id, err := p.storeOne(ctx, turn, o, decision.Retention)
	if err != nil {
		return Report{}, err
	}
	decision.MemoryID = id
	return Report{Decisions: []curation.Decision{decision}, StoredMemories: []string{id}}, nil
}

func admissionRejectionReason(o curation.Observation) string {
	switch {
	case o.EphemeralityScore > curation.MaxEphemeralityForAdmission:
		return "ephemerality_score exceeds admission threshold"
	case o.ConfidenceScore < curation.MinConfidenceForAdmission:
		return "confidence_score below admission threshold"
	case o.ContextualValue < curation.MinContextualValueForAdmission:
		return "contextual_value below admission threshold"
	default:
		return ""
	}
}
