package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/engram-ai/engram/internal/collaborator/embedder"
	"github.com/engram-ai/engram/internal/domain"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/engine"
)

// countingCache wraps an in-memory map and counts Get calls, so tests
// can assert a second Get(memory_id) is served from cache rather than
// round-tripping the store.
type countingCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
}

func newCountingCache() *countingCache {
	return &countingCache{data: map[string][]byte{}}
}

func (c *countingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *countingCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func TestGetPopulatesAndServesFromCache(t *testing.T) {
	store := newFakeStore()
	c := newCountingCache()
	e := engine.New(store, embedder.NewFake(testDim), testDim, nil, c)

	res, err := e.StoreMulti(context.Background(), engine.StoreMultiRequest{
		WitnessedBy:   []string{"alice"},
		SituationType: engram.SituationConversation,
		Content:       engram.Content{Text: "cached note"},
		PrimaryVector: unitVector(1),
		Metadata:      engram.Metadata{Timestamp: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("StoreMulti: %v", err)
	}

	if _, err := e.Get(context.Background(), res.MemoryID, "alice"); err != nil {
		t.Fatalf("first Get: %v", err)
	}
	getsAfterFirst := c.gets
	if getsAfterFirst == 0 {
		t.Fatal("expected first Get to consult the cache")
	}
	store.getCalls = 0

	m, err := e.Get(context.Background(), res.MemoryID, "alice")
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if m.MemoryID != res.MemoryID {
		t.Fatalf("expected memory_id %s, got %s", res.MemoryID, m.MemoryID)
	}
	if store.getCalls != 0 {
		t.Fatalf("expected second Get to be served from cache, store.Get was called %d times", store.getCalls)
	}
}

func TestGetCacheHitStillEnforcesWitness(t *testing.T) {
	store := newFakeStore()
	c := newCountingCache()
	e := engine.New(store, embedder.NewFake(testDim), testDim, nil, c)

	res, err := e.StoreMulti(context.Background(), engine.StoreMultiRequest{
		WitnessedBy:   []string{"alice"},
		SituationType: engram.SituationConversation,
		Content:       engram.Content{Text: "private"},
		PrimaryVector: unitVector(1),
		Metadata:      engram.Metadata{Timestamp: time.Now().UTC()},
	})
	if err != nil {
		t.Fatalf("StoreMulti: %v", err)
	}

	if _, err := e.Get(context.Background(), res.MemoryID, "alice"); err != nil {
		t.Fatalf("warm the cache: %v", err)
	}

	if _, err := e.Get(context.Background(), res.MemoryID, "mallory"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-witness on a cache hit, got %v", err)
	}
}
