package vectorindex

import "testing"

func TestUpsertAndSearchFindsExactMatch(t *testing.T) {
	ix := New(4, DefaultParams())
	vectors := map[string][]float32{
		"a": {1, 0, 0, 0},
		"b": {0, 1, 0, 0},
		"c": {0.9, 0.1, 0, 0},
		"d": {-1, 0, 0, 0},
	}
	for id, v := range vectors {
		if err := ix.Upsert(id, v); err != nil {
			t.Fatalf("Upsert(%s): %v", id, err)
		}
	}

	results, err := ix.Search([]float32{1, 0, 0, 0}, 2, 0, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 || results[0].ID != "a" {
		t.Fatalf("expected top result 'a', got %+v", results)
	}
	if results[0].Similarity < 0.99 {
		t.Fatalf("expected near-1.0 similarity for exact match, got %f", results[0].Similarity)
	}
}

func TestSearchRespectsSimilarityFloor(t *testing.T) {
	ix := New(4, DefaultParams())
	_ = ix.Upsert("a", []float32{1, 0, 0, 0})
	_ = ix.Upsert("d", []float32{-1, 0, 0, 0})

	results, err := ix.Search([]float32{1, 0, 0, 0}, 5, 0.5, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.ID == "d" {
			t.Fatalf("expected opposite vector 'd' to be excluded by the similarity floor")
		}
	}
}

func TestSearchAppliesFilter(t *testing.T) {
	ix := New(4, DefaultParams())
	_ = ix.Upsert("a", []float32{1, 0, 0, 0})
	_ = ix.Upsert("b", []float32{0.99, 0.01, 0, 0})

	allowed := map[string]bool{"b": true}
	results, err := ix.Search([]float32{1, 0, 0, 0}, 5, 0, func(id string) bool { return allowed[id] })
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "b" {
		t.Fatalf("expected only 'b' to pass the filter, got %+v", results)
	}
}

func TestDeleteTombstonesResult(t *testing.T) {
	ix := New(4, DefaultParams())
	_ = ix.Upsert("a", []float32{1, 0, 0, 0})
	if err := ix.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	results, err := ix.Search([]float32{1, 0, 0, 0}, 5, 0, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected deleted vector to be excluded, got %+v", results)
	}
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	ix := New(4, DefaultParams())
	if err := ix.Upsert("a", []float32{1, 0}); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestDeleteUnknownIDReturnsNotFound(t *testing.T) {
	ix := New(4, DefaultParams())
	if err := ix.Delete("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
