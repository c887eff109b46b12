package cleanup_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/engram-ai/engram/internal/cleanup"
	"github.com/engram-ai/engram/internal/domain/annotation"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/port/recordstore"
)

type fakeStore struct {
	mu       sync.Mutex
	memories map[string]engram.Memory
}

func newFakeStore(memories ...engram.Memory) *fakeStore {
	s := &fakeStore{memories: make(map[string]engram.Memory)}
	for _, m := range memories {
		s.memories[m.MemoryID] = m
	}
	return s
}

func (s *fakeStore) Put(_ context.Context, m engram.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[m.MemoryID] = m
	return nil
}
func (s *fakeStore) Get(_ context.Context, id string) (engram.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return engram.Memory{}, errors.New("not found")
	}
	return m, nil
}
func (s *fakeStore) Touch(context.Context, string, time.Time) error { return nil }
func (s *fakeStore) KNN(context.Context, []float32, int, float64, recordstore.Filter) ([]engram.ScoredMemory, error) {
	return nil, nil
}
func (s *fakeStore) ScanByEntity(context.Context, string) ([]string, error) { return nil, nil }
func (s *fakeStore) Annotate(context.Context, string, annotation.Annotation) error { return nil }
func (s *fakeStore) Annotations(context.Context, string) ([]annotation.Annotation, error) {
	return nil, nil
}
func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.memories, id)
	return nil
}
func (s *fakeStore) AllMemories(_ context.Context) ([]engram.Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engram.Memory, 0, len(s.memories))
	for _, m := range s.memories {
		out = append(out, m)
	}
	return out, nil
}
func (s *fakeStore) Update(_ context.Context, m engram.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memories[m.MemoryID] = m
	return nil
}

func (s *fakeStore) get(id string) (engram.Memory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	return m, ok
}

func (s *fakeStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.memories)
}

func TestRunDailyExpiryDeletesPastTTL(t *testing.T) {
	expired := engram.Memory{
		MemoryID:  "expired",
		CreatedAt: time.Now().UTC().Add(-time.Hour),
		Retention: engram.Retention{TTLSeconds: 1},
	}
	alive := engram.Memory{
		MemoryID:  "alive",
		CreatedAt: time.Now().UTC(),
		Retention: engram.Retention{TTLSeconds: 3600},
	}
	permanent := engram.Memory{MemoryID: "permanent", CreatedAt: time.Now().UTC().Add(-999 * time.Hour)}

	store := newFakeStore(expired, alive, permanent)
	s := cleanup.New(store, nil)

	sum, err := s.RunDailyExpiry(context.Background())
	if err != nil {
		t.Fatalf("RunDailyExpiry: %v", err)
	}
	if sum.Deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", sum.Deleted)
	}
	if _, ok := store.get("expired"); ok {
		t.Fatal("expected expired memory to be deleted")
	}
	if _, ok := store.get("alive"); !ok {
		t.Fatal("expected alive memory to survive")
	}
	if _, ok := store.get("permanent"); !ok {
		t.Fatal("expected permanent (ttl=0) memory to survive")
	}
}

func TestRunWeeklyConsolidationMergesSimilarPairs(t *testing.T) {
	v := []float32{1, 0, 0, 0}
	older := time.Now().UTC().Add(-2 * time.Hour)
	newer := time.Now().UTC().Add(-time.Hour)

	a := engram.Memory{
		MemoryID: "a", WitnessedBy: []string{"alice", "bob"}, Vector: v,
		Content: engram.Content{Text: "roadmap discussion part one"}, CreatedAt: older,
		Metadata: engram.Metadata{Confidence: 0.6},
	}
	b := engram.Memory{
		MemoryID: "b", WitnessedBy: []string{"bob", "alice"}, Vector: v,
		Content: engram.Content{Text: "roadmap discussion part two"}, CreatedAt: newer,
		Metadata: engram.Metadata{Confidence: 0.9},
	}
	unrelated := engram.Memory{
		MemoryID: "c", WitnessedBy: []string{"alice", "bob"}, Vector: []float32{0, 1, 0, 0},
		Content: engram.Content{Text: "unrelated"}, CreatedAt: newer,
	}

	store := newFakeStore(a, b, unrelated)
	s := cleanup.New(store, nil)

	sum, err := s.RunWeeklyConsolidation(context.Background())
	if err != nil {
		t.Fatalf("RunWeeklyConsolidation: %v", err)
	}
	if sum.Merged != 1 {
		t.Fatalf("expected 1 merge, got %d", sum.Merged)
	}
	if store.size() != 2 {
		t.Fatalf("expected 2 memories after merge (survivor + unrelated), got %d", store.size())
	}
	survivor, ok := store.get("a")
	if !ok {
		t.Fatal("expected the earlier memory (a) to survive the merge")
	}
	if survivor.Metadata.Confidence != 0.9 {
		t.Fatalf("expected merged confidence to take the higher value 0.9, got %f", survivor.Metadata.Confidence)
	}
	if survivor.Content.Text != "roadmap discussion part one\nroadmap discussion part two" {
		t.Fatalf("expected concatenated content, got %q", survivor.Content.Text)
	}
	if _, ok := store.get("b"); ok {
		t.Fatal("expected b to be deleted after merge")
	}
}

func TestRunMonthlyDecayAppliesLogarithmicDecay(t *testing.T) {
	m := engram.Memory{
		MemoryID:  "m",
		CreatedAt: time.Now().UTC().Add(-90 * 24 * time.Hour),
		Metadata:  engram.Metadata{Importance: 1.0},
		Retention: engram.Retention{DecayFunction: engram.DecayLogarithmic},
	}
	none := engram.Memory{
		MemoryID:  "none",
		CreatedAt: time.Now().UTC().Add(-90 * 24 * time.Hour),
		Metadata:  engram.Metadata{Importance: 1.0},
		Retention: engram.Retention{DecayFunction: engram.DecayNone},
	}

	store := newFakeStore(m, none)
	s := cleanup.New(store, nil)

	sum, err := s.RunMonthlyDecay(context.Background())
	if err != nil {
		t.Fatalf("RunMonthlyDecay: %v", err)
	}
	if sum.Demoted != 1 {
		t.Fatalf("expected 1 demoted, got %d", sum.Demoted)
	}
	decayed, _ := store.get("m")
	if decayed.Metadata.Importance >= 1.0 || decayed.Metadata.Importance <= 0 {
		t.Fatalf("expected importance strictly between 0 and 1, got %f", decayed.Metadata.Importance)
	}
	unchanged, _ := store.get("none")
	if unchanged.Metadata.Importance != 1.0 {
		t.Fatalf("expected decay_function=none to be left untouched, got %f", unchanged.Metadata.Importance)
	}
}
