package vectorindex

import (
	"context"
	"math"
	"testing"
)

func unit(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

func TestFlatBuildSearchRoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx := newFlat(dir, "idx", 3)

	vectors := [][]float32{
		unit([]float32{1, 0, 0}),
		unit([]float32{0, 1, 0}),
		unit([]float32{1, 1, 0}),
	}
	ids := []string{"a", "b", "c"}

	if err := idx.Build(context.Background(), vectors, ids); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := idx.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := openFlat(dir, "idx", 3)
	if err != nil {
		t.Fatalf("openFlat: %v", err)
	}
	if loaded.Count() != 3 {
		t.Fatalf("Count = %d, want 3", loaded.Count())
	}

	res, err := loaded.Search(context.Background(), [][]float32{unit([]float32{1, 0, 0})}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || len(res[0]) != 2 {
		t.Fatalf("got %+v, want 1 query x 2 results", res)
	}
	if res[0][0].ID != "a" {
		t.Errorf("top hit = %q, want a", res[0][0].ID)
	}
}

func TestFlatBuildDimMismatch(t *testing.T) {
	idx := newFlat(t.TempDir(), "idx", 3)
	err := idx.Build(context.Background(), [][]float32{{1, 2}}, []string{"a"})
	if err == nil {
		t.Fatal("expected error for dim mismatch")
	}
}

func TestFlatBuildLengthMismatch(t *testing.T) {
	idx := newFlat(t.TempDir(), "idx", 3)
	err := idx.Build(context.Background(), [][]float32{{1, 2, 3}}, []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error for id/vector length mismatch")
	}
}

func TestExistsFalseWhenMissing(t *testing.T) {
	if Exists(t.TempDir(), "idx") {
		t.Error("Exists = true for empty dir, want false")
	}
}

func TestFlatSaveEmptyCorpusRoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx := newFlat(dir, "idx", 3)

	// rebuildIndex calls Save directly, without ever calling Build, when
	// the scanned corpus yields zero chunks.
	if err := idx.Save(); err != nil {
		t.Fatalf("Save on an empty corpus: %v", err)
	}

	loaded, err := openFlat(dir, "idx", 3)
	if err != nil {
		t.Fatalf("openFlat: %v", err)
	}
	if loaded.Count() != 0 {
		t.Fatalf("Count = %d, want 0", loaded.Count())
	}

	res, err := loaded.Search(context.Background(), [][]float32{unit([]float32{1, 0, 0})}, 5)
	if err != nil {
		t.Fatalf("Search on an empty index: %v", err)
	}
	if len(res) != 1 || len(res[0]) != 0 {
		t.Fatalf("got %+v, want 1 query x 0 results", res)
	}
}

func TestFlatBuildEmptyVectors(t *testing.T) {
	idx := newFlat(t.TempDir(), "idx", 3)
	if err := idx.Build(context.Background(), nil, nil); err != nil {
		t.Fatalf("Build with zero vectors: %v", err)
	}
	if idx.Count() != 0 {
		t.Errorf("Count = %d, want 0", idx.Count())
	}
}

func TestFlatSearchKClampedToCount(t *testing.T) {
	dir := t.TempDir()
	idx := newFlat(dir, "idx", 2)
	idx.Build(context.Background(), [][]float32{unit([]float32{1, 0})}, []string{"only"})

	res, err := idx.Search(context.Background(), [][]float32{unit([]float32{1, 0})}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res[0]) != 1 {
		t.Errorf("got %d results, want 1 (clamped to count)", len(res[0]))
	}
}
