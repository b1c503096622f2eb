package vectorindex

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// flatIndex is the brute-force fallback: an N×dim dense matrix searched
// by computing Q × Mᵀ and partial-sorting each row. Used when the native
// ANN backend cannot be constructed.
type flatIndex struct {
	dir       string
	indexFile string
	dim       int
	ids       []string
	m         *mat.Dense // N x dim, rows are unit vectors
}

func matPath(dir, indexFile string) string {
	return filepath.Join(dir, indexFile+".flat.bin")
}

func newFlat(dir, indexFile string, dim int) *flatIndex {
	return &flatIndex{dir: dir, indexFile: indexFile, dim: dim}
}

func openFlat(dir, indexFile string, dim int) (*flatIndex, error) {
	idx := newFlat(dir, indexFile, dim)
	ids, err := readLines(idsPath(dir, indexFile))
	if err != nil {
		return nil, err
	}
	idx.ids = ids
	m, err := readMatrix(matPath(dir, indexFile), len(ids), dim)
	if err != nil {
		return nil, err
	}
	idx.m = m
	return idx, nil
}

func (f *flatIndex) Build(ctx context.Context, vectors [][]float32, ids []string) error {
	if len(vectors) != len(ids) {
		return fmt.Errorf("vectorindex: %d vectors but %d ids", len(vectors), len(ids))
	}
	f.ids = append([]string(nil), ids...)
	if len(vectors) == 0 {
		// gonum's mat.NewDense panics with ErrZeroLength given 0 rows.
		f.m = nil
		return nil
	}
	data := make([]float64, len(vectors)*f.dim)
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vectorindex: vector %d has dim %d, want %d", i, len(v), f.dim)
		}
		for j, x := range v {
			data[i*f.dim+j] = float64(x)
		}
	}
	f.m = mat.NewDense(len(vectors), f.dim, data)
	return nil
}

func (f *flatIndex) Save() error {
	if err := writeMatrix(matPath(f.dir, f.indexFile), f.m); err != nil {
		return err
	}
	idsFile, err := os.Create(idsPath(f.dir, f.indexFile))
	if err != nil {
		return err
	}
	defer idsFile.Close()
	for _, id := range f.ids {
		if _, err := fmt.Fprintln(idsFile, id); err != nil {
			return err
		}
	}
	return writeMeta(f.dir, f.indexFile, Meta{
		Dim: f.dim, Metric: "cosine", Backend: string(BackendFlat), Count: len(f.ids),
	})
}

func (f *flatIndex) Count() int { return len(f.ids) }

func (f *flatIndex) Search(ctx context.Context, queries [][]float32, k int) ([][]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("vectorindex: k must be > 0, got %d", k)
	}
	n := f.Count()
	limit := k
	if limit > n {
		limit = n
	}

	out := make([][]Result, len(queries))
	if n == 0 {
		return out, nil
	}

	for qi, q := range queries {
		if len(q) != f.dim {
			return nil, fmt.Errorf("vectorindex: query %d has dim %d, want %d", qi, len(q), f.dim)
		}
		qVec := mat.NewVecDense(f.dim, toFloat64(q))
		var scores mat.VecDense
		scores.MulVec(f.m, qVec)

		type scored struct {
			idx   int
			score float64
		}
		ranked := make([]scored, n)
		for i := 0; i < n; i++ {
			ranked[i] = scored{idx: i, score: scores.AtVec(i)}
		}
		sort.SliceStable(ranked, func(a, b int) bool {
			return ranked[a].score > ranked[b].score
		})

		res := make([]Result, limit)
		for i := 0; i < limit; i++ {
			res[i] = Result{ID: f.ids[ranked[i].idx], Score: float32(ranked[i].score)}
		}
		out[qi] = res
	}
	return out, nil
}

func (f *flatIndex) Close() error { return nil }

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// writeMatrix serializes a dense matrix as raw little-endian float64s,
// row-major, with no header: shape is recovered from the ids file length
// and the dim recorded in meta.json. A nil m (empty corpus, Build never
// called) writes an empty file.
func writeMatrix(path string, m *mat.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	defer w.Flush()

	if m == nil {
		return nil
	}

	rows, cols := m.Dims()
	buf := make([]byte, 8)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			binary.LittleEndian.PutUint64(buf, math.Float64bits(m.At(i, j)))
			if _, err := w.Write(buf); err != nil {
				return err
			}
		}
	}
	return nil
}

// readMatrix returns nil for a zero-row index without touching gonum, which
// panics with ErrZeroLength given 0 rows or columns.
func readMatrix(path string, rows, cols int) (*mat.Dense, error) {
	if rows == 0 {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	want := rows * cols * 8
	if len(b) != want {
		return nil, fmt.Errorf("vectorindex: matrix file size %d, want %d", len(b), want)
	}
	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return mat.NewDense(rows, cols, data), nil
}
