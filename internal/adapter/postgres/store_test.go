package postgres_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/engram-ai/engram/internal/adapter/postgres"
	"github.com/engram-ai/engram/internal/domain"
	"github.com/engram-ai/engram/internal/domain/annotation"
	"github.com/engram-ai/engram/internal/domain/engram"
	"github.com/engram-ai/engram/internal/port/recordstore"
)

// setupStore creates a pgxpool connection, runs all migrations, and returns
// a ready-to-use Store. The pool is closed via t.Cleanup.
func setupStore(t *testing.T) *postgres.Store {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return postgres.New(pool, 8)
}

func testVector(seed float32) []float32 {
	v := make([]float32, 8)
	for i := range v {
		v[i] = seed + float32(i)*0.01
	}
	return v
}

func testMemory(id string, witnesses []string, privacy engram.PrivacyLevel) engram.Memory {
	return engram.Memory{
		MemoryID:      id,
		Content:       engram.Content{Text: "the deployment runbook lives in the ops repo"},
		Vector:        testVector(0.5),
		WitnessedBy:   witnesses,
		SituationID:   "sit-" + id,
		SituationType: engram.SituationConversation,
		PrivacyLevel:  privacy,
		Metadata: engram.Metadata{
			Timestamp:  time.Now().UTC(),
			MemoryType: engram.TypeFact,
		},
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m := testMemory("mem-put-get-delete", []string{"agent-1"}, engram.PrivacyParticipantsOnly)
	if err := store.Put(ctx, m); err != nil {
		t.Fatalf("Put: %v", err)
	}
	t.Cleanup(func() { _ = store.Delete(ctx, m.MemoryID) })

	got, err := store.Get(ctx, m.MemoryID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Content.Text != m.Content.Text {
		t.Fatalf("expected text %q, got %q", m.Content.Text, got.Content.Text)
	}
	if len(got.Vector) != 8 {
		t.Fatalf("expected 8-dim vector round trip, got %d", len(got.Vector))
	}

	if err := store.Delete(ctx, m.MemoryID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, m.MemoryID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStore_PutDuplicateReturnsAlreadyExists(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m := testMemory("mem-dup", []string{"agent-1"}, engram.PrivacyPersonal)
	if err := store.Put(ctx, m); err != nil {
		t.Fatalf("Put: %v", err)
	}
	t.Cleanup(func() { _ = store.Delete(ctx, m.MemoryID) })

	if err := store.Put(ctx, m); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on duplicate insert, got %v", err)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	store := setupStore(t)
	if _, err := store.Get(context.Background(), "mem-does-not-exist"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_KNNRespectsWitnessFilter(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	visible := testMemory("mem-knn-visible", []string{"agent-2"}, engram.PrivacyParticipantsOnly)
	hidden := testMemory("mem-knn-hidden", []string{"agent-3"}, engram.PrivacyParticipantsOnly)
	if err := store.Put(ctx, visible); err != nil {
		t.Fatalf("Put visible: %v", err)
	}
	if err := store.Put(ctx, hidden); err != nil {
		t.Fatalf("Put hidden: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Delete(ctx, visible.MemoryID)
		_ = store.Delete(ctx, hidden.MemoryID)
	})

	results, err := store.KNN(ctx, testVector(0.5), 10, -1, recordstore.Filter{
		RequesterIDs: []string{"agent2"},
	})
	if err != nil {
		t.Fatalf("KNN: %v", err)
	}
	for _, r := range results {
		if r.MemoryID == hidden.MemoryID {
			t.Fatal("KNN returned a memory outside the requester's witness set")
		}
	}
	found := false
	for _, r := range results {
		if r.MemoryID == visible.MemoryID {
			found = true
		}
	}
	if !found {
		t.Fatal("KNN did not return the visible memory")
	}
}

func TestStore_ScanByEntity(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m := testMemory("mem-scan-1", []string{"Agent-Scan"}, engram.PrivacyGroup)
	if err := store.Put(ctx, m); err != nil {
		t.Fatalf("Put: %v", err)
	}
	t.Cleanup(func() { _ = store.Delete(ctx, m.MemoryID) })

	ids, err := store.ScanByEntity(ctx, "agentscan")
	if err != nil {
		t.Fatalf("ScanByEntity: %v", err)
	}
	found := false
	for _, id := range ids {
		if id == m.MemoryID {
			found = true
		}
	}
	if !found {
		t.Fatal("ScanByEntity did not find memory under normalized entity id")
	}
}

func TestStore_AnnotateRequiresExistingMemory(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	a := annotation.Annotation{AnnotatorID: "agent-1", Type: "correction", Content: "actually it was v2", Timestamp: time.Now().UTC()}
	if err := store.Annotate(ctx, "mem-nonexistent", a); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound annotating missing memory, got %v", err)
	}

	m := testMemory("mem-annotate", []string{"agent-1"}, engram.PrivacyPersonal)
	if err := store.Put(ctx, m); err != nil {
		t.Fatalf("Put: %v", err)
	}
	t.Cleanup(func() { _ = store.Delete(ctx, m.MemoryID) })

	if err := store.Annotate(ctx, m.MemoryID, a); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	got, err := store.Annotations(ctx, m.MemoryID)
	if err != nil {
		t.Fatalf("Annotations: %v", err)
	}
	if len(got) != 1 || got[0].Content != a.Content {
		t.Fatalf("expected 1 annotation with content %q, got %+v", a.Content, got)
	}
}

func TestStore_RebuildRestoresIndex(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m := testMemory("mem-rebuild", []string{"agent-1"}, engram.PrivacyPublic)
	if err := store.Put(ctx, m); err != nil {
		t.Fatalf("Put: %v", err)
	}
	t.Cleanup(func() { _ = store.Delete(ctx, m.MemoryID) })

	if err := store.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	results, err := store.KNN(ctx, testVector(0.5), 5, -1, recordstore.Filter{})
	if err != nil {
		t.Fatalf("KNN after rebuild: %v", err)
	}
	found := false
	for _, r := range results {
		if r.MemoryID == m.MemoryID {
			found = true
		}
	}
	if !found {
		t.Fatal("KNN after Rebuild did not find the persisted memory")
	}
}
