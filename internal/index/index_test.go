package index

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/staffdex/staffdex/internal/domain"
)

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	idx := New(3)
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	for i, v := range vectors {
		if err := idx.Add(i, v); err != nil {
			t.Fatalf("Add(%d): %v", i, err)
		}
	}
	return idx
}

func TestSearch_NearestFirst(t *testing.T) {
	idx := buildTestIndex(t)

	hits, err := idx.Search([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].RowID != 0 {
		t.Errorf("best hit = row %d, want row 0", hits[0].RowID)
	}
	if hits[0].Distance > 1e-6 {
		t.Errorf("distance to identical vector = %f, want ~0", hits[0].Distance)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Distance < hits[i-1].Distance {
			t.Errorf("hits not ordered by distance: %v", hits)
		}
	}
}

func TestSearch_OrderingIsStableAcrossRebuilds(t *testing.T) {
	// The graph's layer assignment is randomized per Add, so raw graph output
	// order varies between otherwise identical builds. The wrapper re-ranks by
	// distance, which must hold for every rebuild.
	for i := 0; i < 50; i++ {
		idx := buildTestIndex(t)

		hits, err := idx.Search([]float32{1, 0, 0}, 3)
		if err != nil {
			t.Fatalf("rebuild %d: Search: %v", i, err)
		}
		if len(hits) != 3 {
			t.Fatalf("rebuild %d: expected 3 hits, got %d", i, len(hits))
		}

		// Distances to {1,0,0}: row 0 exact, row 2 close, row 1 orthogonal.
		wantOrder := []int{0, 2, 1}
		for j, want := range wantOrder {
			if hits[j].RowID != want {
				t.Fatalf("rebuild %d: hit order = %v, want rows %v", i, hits, wantOrder)
			}
		}
		for j := 1; j < len(hits); j++ {
			if hits[j].Distance < hits[j-1].Distance {
				t.Fatalf("rebuild %d: hits not ordered by distance: %v", i, hits)
			}
		}
	}
}

func TestSearch_SimilarityConvention(t *testing.T) {
	idx := New(2)
	if err := idx.Add(0, []float32{3, 4}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// Same direction, different magnitude: cosine similarity 1.
	hits, err := idx.Search([]float32{6, 8}, 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	sim := 1 - float64(hits[0].Distance)
	if math.Abs(sim-1.0) > 1e-6 {
		t.Errorf("similarity = %f, want 1.0", sim)
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	idx := buildTestIndex(t)
	if _, err := idx.Search([]float32{1, 0}, 1); !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestSearch_NonPositiveK(t *testing.T) {
	idx := buildTestIndex(t)
	hits, err := idx.Search([]float32{1, 0, 0}, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits for k=0, got %d", len(hits))
	}
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	idx := buildTestIndex(t)
	path := filepath.Join(t.TempDir(), "employees.hnsw")

	if err := idx.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := Open(3)
	if loaded.Ready() {
		t.Fatal("index should not be ready before Load")
	}
	if _, err := loaded.Search([]float32{1, 0, 0}, 1); !errors.Is(err, domain.ErrNotReady) {
		t.Fatalf("expected ErrNotReady before Load, got %v", err)
	}

	if err := loaded.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Ready() {
		t.Fatal("index should be ready after Load")
	}
	if loaded.Len() != idx.Len() {
		t.Fatalf("loaded %d rows, want %d", loaded.Len(), idx.Len())
	}

	hits, err := loaded.Search([]float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("Search after Load: %v", err)
	}
	if len(hits) != 1 || hits[0].RowID != 1 {
		t.Fatalf("unexpected hits after roundtrip: %v", hits)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	idx := Open(3)
	err := idx.Load(filepath.Join(t.TempDir(), "nope.hnsw"))
	if err == nil {
		t.Fatal("expected error for missing index file")
	}
	// The first Load outcome sticks.
	if again := idx.Load("anything"); !errors.Is(again, err) && again.Error() != err.Error() {
		t.Fatalf("second Load returned a different outcome: %v vs %v", again, err)
	}
}

func TestAdd_RejectsNegativeRow(t *testing.T) {
	idx := New(3)
	if err := idx.Add(-1, []float32{1, 0, 0}); err == nil {
		t.Fatal("expected error for negative row id")
	}
}
