package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/engram-ai/engram/internal/collaborator/embedder"
	"github.com/engram-ai/engram/internal/domain"
	"github.com/engram-ai/engram/internal/domain/annotation"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/engine"
)

const testDim = 8

func unitVector(seed float32) []float32 {
	v := make([]float32, testDim)
	v[0] = seed
	for i := 1; i < testDim; i++ {
		v[i] = 0.01
	}
	return v
}

func newTestEngine() (*engine.Engine, *fakeStore) {
	store := newFakeStore()
	return engine.New(store, embedder.NewFake(testDim), testDim, nil, nil), store
}

func TestStoreSingleDefaultsWitnessToAgent(t *testing.T) {
	e, store := newTestEngine()

	res, err := e.StoreSingle(context.Background(), engine.StoreSingleRequest{
		Content:       engram.Content{Text: "user prefers dark mode"},
		PrimaryVector: unitVector(1),
		Metadata:      engram.Metadata{AgentID: "agent-1", MemoryType: engram.TypeFact, Timestamp: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("StoreSingle: %v", err)
	}
	if res.MemoryID == "" {
		t.Fatal("expected a memory_id")
	}

	stored, err := store.Get(context.Background(), res.MemoryID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(stored.WitnessedBy) != 1 || stored.WitnessedBy[0] != "agent-1" {
		t.Fatalf("expected witnessed_by=[agent-1], got %v", stored.WitnessedBy)
	}
	if stored.SituationType != engram.SituationLegacySingleAgent {
		t.Fatalf("expected legacy_single_agent situation_type, got %s", stored.SituationType)
	}
}

func TestStoreSingleRejectsMissingAgentID(t *testing.T) {
	e, _ := newTestEngine()
	_, err := e.StoreSingle(context.Background(), engine.StoreSingleRequest{
		Content:       engram.Content{Text: "hello"},
		PrimaryVector: unitVector(1),
		Metadata:      engram.Metadata{Timestamp: time.Now().UTC()},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestStoreMultiNormalizesWitnesses(t *testing.T) {
	e, store := newTestEngine()
	res, err := e.StoreMulti(context.Background(), engine.StoreMultiRequest{
		WitnessedBy:   []string{"Alice", "human-bob"},
		SituationType: engram.SituationConversation,
		Content:       engram.Content{Text: "let's ship the release"},
		PrimaryVector: unitVector(1),
		Metadata:      engram.Metadata{Timestamp: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("StoreMulti: %v", err)
	}
	stored, _ := store.Get(context.Background(), res.MemoryID)
	want := map[string]bool{"alice": true, "humanbob": true}
	if len(stored.WitnessedBy) != 2 {
		t.Fatalf("expected 2 normalized witnesses, got %v", stored.WitnessedBy)
	}
	for _, w := range stored.WitnessedBy {
		if !want[w] {
			t.Fatalf("unexpected witness %q", w)
		}
	}
}

// S1 from spec §8.4: a consultation between alice and claude is invisible to bob.
func TestRetrieveMultiPrivateConsultationIsPrivate(t *testing.T) {
	e, _ := newTestEngine()
	v := unitVector(1)
	_, err := e.StoreMulti(context.Background(), engine.StoreMultiRequest{
		WitnessedBy:   []string{"alice", "claude"},
		SituationType: engram.SituationConsultation1to1,
		Content:       engram.Content{Text: "Algorithm optimization"},
		PrimaryVector: v,
		Metadata:      engram.Metadata{Timestamp: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("StoreMulti: %v", err)
	}

	req := engine.RetrieveMultiRequest{
		RetrieveSingleRequest: engine.RetrieveSingleRequest{
			ResonanceVectors: []engine.ResonanceVector{{Vector: v, Weight: 1}},
			Retrieval:        engine.RetrievalOptions{TopK: 10, SimilarityThreshold: 0},
		},
	}

	req.RequestingEntity = "bob"
	bobResult, err := e.RetrieveMulti(context.Background(), req)
	if err != nil {
		t.Fatalf("RetrieveMulti(bob): %v", err)
	}
	if len(bobResult.Memories) != 0 || bobResult.AccessGrantedCount != 0 {
		t.Fatalf("expected bob to see nothing, got %+v", bobResult)
	}

	req.RequestingEntity = "alice"
	aliceResult, err := e.RetrieveMulti(context.Background(), req)
	if err != nil {
		t.Fatalf("RetrieveMulti(alice): %v", err)
	}
	if len(aliceResult.Memories) != 1 {
		t.Fatalf("expected alice to see exactly 1 memory, got %d", len(aliceResult.Memories))
	}
	if aliceResult.Memories[0].SimilarityScore < 0.999 {
		t.Fatalf("expected similarity ~1.0, got %f", aliceResult.Memories[0].SimilarityScore)
	}
}

// S2 from spec §8.4: group visibility.
func TestRetrieveMultiGroupVisibility(t *testing.T) {
	e, _ := newTestEngine()
	v := unitVector(1)
	_, err := e.StoreMulti(context.Background(), engine.StoreMultiRequest{
		WitnessedBy:   []string{"alice", "bob", "claude"},
		SituationType: engram.SituationGroupDiscussion,
		Content:       engram.Content{Text: "roadmap review"},
		PrimaryVector: v,
		Metadata:      engram.Metadata{Timestamp: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("StoreMulti: %v", err)
	}

	for _, entity := range []string{"alice", "bob", "claude"} {
		req := engine.RetrieveMultiRequest{
			RetrieveSingleRequest: engine.RetrieveSingleRequest{
				ResonanceVectors: []engine.ResonanceVector{{Vector: v, Weight: 1}},
				Retrieval:        engine.RetrievalOptions{TopK: 10},
			},
			RequestingEntity: entity,
		}
		result, err := e.RetrieveMulti(context.Background(), req)
		if err != nil {
			t.Fatalf("RetrieveMulti(%s): %v", entity, err)
		}
		if len(result.Memories) != 1 {
			t.Fatalf("expected %s to see 1 memory, got %d", entity, len(result.Memories))
		}
	}

	req := engine.RetrieveMultiRequest{
		RetrieveSingleRequest: engine.RetrieveSingleRequest{
			ResonanceVectors: []engine.ResonanceVector{{Vector: v, Weight: 1}},
			Retrieval:        engine.RetrievalOptions{TopK: 10},
		},
		RequestingEntity: "dave",
	}
	result, err := e.RetrieveMulti(context.Background(), req)
	if err != nil {
		t.Fatalf("RetrieveMulti(dave): %v", err)
	}
	if len(result.Memories) != 0 {
		t.Fatalf("expected dave to see nothing, got %d", len(result.Memories))
	}
}

func TestRetrieveSingleTopKZeroReturnsEmpty(t *testing.T) {
	e, _ := newTestEngine()
	result, err := e.RetrieveSingle(context.Background(), engine.RetrieveSingleRequest{
		ResonanceVectors: []engine.ResonanceVector{{Vector: unitVector(1), Weight: 1}},
		Retrieval:        engine.RetrievalOptions{TopK: 0},
	})
	if err != nil {
		t.Fatalf("RetrieveSingle: %v", err)
	}
	if len(result.Memories) != 0 {
		t.Fatalf("expected empty result for top_k=0, got %d", len(result.Memories))
	}
}

func TestGetAppliesAccessPredicate(t *testing.T) {
	e, _ := newTestEngine()
	res, err := e.StoreMulti(context.Background(), engine.StoreMultiRequest{
		WitnessedBy:   []string{"alice"},
		SituationType: engram.SituationConversation,
		Content:       engram.Content{Text: "private note"},
		PrimaryVector: unitVector(1),
		Metadata:      engram.Metadata{Timestamp: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("StoreMulti: %v", err)
	}

	if _, err := e.Get(context.Background(), res.MemoryID, "mallory"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-witness, got %v", err)
	}
	if _, err := e.Get(context.Background(), res.MemoryID, "alice"); err != nil {
		t.Fatalf("expected witness to read memory, got %v", err)
	}
}

func TestAnnotateRequiresWitness(t *testing.T) {
	e, _ := newTestEngine()
	res, err := e.StoreMulti(context.Background(), engine.StoreMultiRequest{
		WitnessedBy:   []string{"alice"},
		SituationType: engram.SituationConversation,
		Content:       engram.Content{Text: "note"},
		PrimaryVector: unitVector(1),
		Metadata:      engram.Metadata{Timestamp: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("StoreMulti: %v", err)
	}

	err = e.Annotate(context.Background(), res.MemoryID, "mallory", annotation.Annotation{
		AnnotatorID: "mallory", Type: "correction", Content: "actually...",
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-witness annotate, got %v", err)
	}

	err = e.Annotate(context.Background(), res.MemoryID, "alice", annotation.Annotation{
		AnnotatorID: "alice", Type: "correction", Content: "actually...",
	})
	if err != nil {
		t.Fatalf("expected witness annotate to succeed, got %v", err)
	}

	got, err := e.Annotations(context.Background(), res.MemoryID, "alice")
	if err != nil {
		t.Fatalf("Annotations: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 annotation, got %d", len(got))
	}
}

func TestSituationsForOrdersByLastActivityDescending(t *testing.T) {
	e, _ := newTestEngine()
	older := time.Now().UTC().Add(-time.Hour)
	newer := time.Now().UTC()

	_, err := e.StoreMulti(context.Background(), engine.StoreMultiRequest{
		WitnessedBy:   []string{"alice"},
		SituationID:   "sit-old",
		SituationType: engram.SituationConversation,
		Content:       engram.Content{Text: "old chat"},
		PrimaryVector: unitVector(1),
		Metadata:      engram.Metadata{Timestamp: older},
	})
	if err != nil {
		t.Fatalf("StoreMulti old: %v", err)
	}
	_, err = e.StoreMulti(context.Background(), engine.StoreMultiRequest{
		WitnessedBy:   []string{"alice"},
		SituationID:   "sit-new",
		SituationType: engram.SituationConversation,
		Content:       engram.Content{Text: "new chat"},
		PrimaryVector: unitVector(1),
		Metadata:      engram.Metadata{Timestamp: newer},
	})
	if err != nil {
		t.Fatalf("StoreMulti new: %v", err)
	}

	situations, err := e.SituationsFor(context.Background(), "alice")
	if err != nil {
		t.Fatalf("SituationsFor: %v", err)
	}
	if len(situations) != 2 {
		t.Fatalf("expected 2 situations, got %d", len(situations))
	}
	if situations[0].SituationID != "sit-new" {
		t.Fatalf("expected sit-new first, got %s", situations[0].SituationID)
	}
}
