package engine_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/engram-ai/engram/internal/domain"
	"github.com/engram-ai/engram/internal/domain/annotation"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/port/recordstore"
)

// fakeStore is a minimal in-memory recordstore.Store used to exercise
// the engine without a Postgres connection. KNN performs a brute-force
// cosine scan, mirroring vectorindex's fallback path.
type fakeStore struct {
	mu          sync.Mutex
	memories    map[string]engram.Memory
	annotations map[string][]annotation.Annotation
	getCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		memories:    make(map[string]engram.Memory),
		annotations: make(map[string][]annotation.Annotation),
	}
}

func (f *fakeStore) Put(_ context.Context, m engram.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.memories[m.MemoryID]; exists {
		return fmt.Errorf("put %s: %w", m.MemoryID, domain.ErrAlreadyExists)
	}
	f.memories[m.MemoryID] = m
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (engram.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	m, ok := f.memories[id]
	if !ok {
		return engram.Memory{}, fmt.Errorf("get %s: %w", id, domain.ErrNotFound)
	}
	return m, nil
}

func (f *fakeStore) Touch(_ context.Context, id string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.memories[id]
	if !ok {
		return fmt.Errorf("touch %s: %w", id, domain.ErrNotFound)
	}
	m.AccessCount++
	m.LastAccessedAt = now
	f.memories[id] = m
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (sqrt(na) * sqrt(nb))
}

func sqrt(x float64) float64 {
	if x == 0 {
		return 0
	}
	z := x
	for i := 0; i < 50; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

func (f *fakeStore) KNN(_ context.Context, query []float32, k int, floor float64, filter recordstore.Filter) ([]engram.ScoredMemory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var scored []engram.ScoredMemory
	for _, m := range f.memories {
		if filter.RequesterIDs != nil {
			allowed := false
			for _, r := range filter.RequesterIDs {
				for _, w := range m.WitnessedBy {
					if w == r {
						allowed = true
					}
				}
			}
			if m.PrivacyLevel == engram.PrivacyPublic {
				allowed = true
			}
			if !allowed {
				continue
			}
		}
		if filter.SituationType != "" && m.SituationType != filter.SituationType {
			continue
		}
		if filter.MemoryType != "" && m.Metadata.MemoryType != filter.MemoryType {
			continue
		}
		if !filter.After.IsZero() && m.Metadata.Timestamp.Before(filter.After) {
			continue
		}
		sim := cosine(query, m.Vector)
		if sim < floor {
			continue
		}
		scored = append(scored, engram.ScoredMemory{Memory: m, SimilarityScore: sim})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].SimilarityScore > scored[j].SimilarityScore })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (f *fakeStore) ScanByEntity(_ context.Context, entityID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, m := range f.memories {
		for _, w := range m.WitnessedBy {
			if w == entityID {
				ids = append(ids, m.MemoryID)
			}
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStore) Annotate(_ context.Context, memoryID string, a annotation.Annotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.memories[memoryID]; !ok {
		return fmt.Errorf("annotate %s: %w", memoryID, domain.ErrNotFound)
	}
	f.annotations[memoryID] = append(f.annotations[memoryID], a)
	return nil
}

func (f *fakeStore) Annotations(_ context.Context, memoryID string) ([]annotation.Annotation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.annotations[memoryID], nil
}

func (f *fakeStore) Delete(_ context.Context, memoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.memories[memoryID]; !ok {
		return fmt.Errorf("delete %s: %w", memoryID, domain.ErrNotFound)
	}
	delete(f.memories, memoryID)
	return nil
}

func (f *fakeStore) Update(_ context.Context, m engram.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.memories[m.MemoryID]; !ok {
		return fmt.Errorf("update %s: %w", m.MemoryID, domain.ErrNotFound)
	}
	f.memories[m.MemoryID] = m
	return nil
}

func (f *fakeStore) AllMemories(_ context.Context) ([]engram.Memory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]engram.Memory, 0, len(f.memories))
	for _, m := range f.memories {
		out = append(out, m)
	}
	return out, nil
}
