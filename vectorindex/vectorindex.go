// Package vectorindex stores (id, vector) pairs and answers top-k inner
// product queries over unit vectors. Two backends exist: a native ANN
// backend (sqlite-vec's vec0 virtual table) and a brute-force fallback
// (a dense matrix product via gonum). Both persist to a pair of sidecar
// files selected by a meta.json that records which backend wrote them,
// so a loader never has to guess which reader to use.
package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Index builds, persists, and searches a set of id-tagged unit vectors.
type Index interface {
	// Build replaces any in-memory state with the given vectors and ids.
	// len(vectors) must equal len(ids); every vector must have length Dim.
	Build(ctx context.Context, vectors [][]float32, ids []string) error
	// Save persists the current in-memory state to disk.
	Save() error
	// Search returns, for each query row, the top-k ids by inner product,
	// highest score first.
	Search(ctx context.Context, queries [][]float32, k int) ([][]Result, error)
	// Count returns the number of vectors currently indexed.
	Count() int
	Close() error
}

// Result is one scored hit from Search.
type Result struct {
	ID    string
	Score float32
}

// Meta is the sidecar metadata file written alongside the index payload.
type Meta struct {
	Dim     int    `json:"dim"`
	Metric  string `json:"metric"`
	Backend string `json:"backend"`
	Count   int    `json:"count"`
}

func metaPath(dir, indexFile string) string {
	return filepath.Join(dir, indexFile+".meta.json")
}

func idsPath(dir, indexFile string) string {
	return filepath.Join(dir, indexFile+".ids.txt")
}

func writeMeta(dir, indexFile string, m Meta) error {
	f, err := os.Create(metaPath(dir, indexFile))
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

func readMeta(dir, indexFile string) (Meta, error) {
	var m Meta
	b, err := os.ReadFile(metaPath(dir, indexFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return m, err
	}
	return m, nil
}

// Exists reports whether a complete, loadable index (meta + ids file) is
// present at dir/indexFile.
func Exists(dir, indexFile string) bool {
	if _, err := os.Stat(metaPath(dir, indexFile)); err != nil {
		return false
	}
	if _, err := os.Stat(idsPath(dir, indexFile)); err != nil {
		return false
	}
	return true
}

// Backend selects which implementation Open constructs.
type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendNative Backend = "native"
	BackendFlat   Backend = "flat"
)

// Open opens (or prepares to create) an index at dir/indexFile for
// vectors of the given dimension. With BackendAuto it loads whichever
// backend wrote an existing meta.json, or tries native first when
// nothing exists yet, falling back to flat if the native backend cannot
// be constructed (e.g. the cgo sqlite-vec extension failed to load).
func Open(dir string, indexFile string, dim int, backend Backend) (Index, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("vectorindex: creating dir: %w", err)
	}

	if Exists(dir, indexFile) {
		m, err := readMeta(dir, indexFile)
		if err != nil {
			return nil, fmt.Errorf("vectorindex: reading meta: %w", err)
		}
		switch Backend(m.Backend) {
		case BackendNative:
			return openNative(dir, indexFile, m.Dim)
		case BackendFlat:
			return openFlat(dir, indexFile, m.Dim)
		default:
			return nil, fmt.Errorf("vectorindex: unknown backend %q in meta", m.Backend)
		}
	}

	switch backend {
	case BackendFlat:
		return newFlat(dir, indexFile, dim), nil
	case BackendNative:
		return newNative(dir, indexFile, dim)
	default: // auto
		idx, err := newNative(dir, indexFile, dim)
		if err != nil {
			return newFlat(dir, indexFile, dim), nil
		}
		return idx, nil
	}
}
