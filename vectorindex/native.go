package vectorindex

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

var vecAutoOnce sync.Once

func registerVec() {
	vecAutoOnce.Do(func() {
		sqlite_vec.Auto()
	})
}

// nativeIndex is the ANN backend: a vec0 virtual table in its own sqlite
// file, separate from the chunk store's database. Rows are keyed by a
// dense integer rowid; the chunk_id each rowid maps to is kept in a
// parallel newline-separated ids file, so rowid N corresponds to line N+1.
type nativeIndex struct {
	dir       string
	indexFile string
	dim       int
	db        *sql.DB
	ids       []string
}

func dbPath(dir, indexFile string) string {
	return filepath.Join(dir, indexFile+".vec.db")
}

func newNative(dir, indexFile string, dim int) (*nativeIndex, error) {
	registerVec()
	db, err := sql.Open("sqlite3", dbPath(dir, indexFile))
	if err != nil {
		return nil, fmt.Errorf("vectorindex: opening native db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("vectorindex: native backend unavailable: %w", err)
	}
	return &nativeIndex{dir: dir, indexFile: indexFile, dim: dim, db: db}, nil
}

func openNative(dir, indexFile string, dim int) (*nativeIndex, error) {
	idx, err := newNative(dir, indexFile, dim)
	if err != nil {
		return nil, err
	}
	lines, err := readLines(idsPath(dir, indexFile))
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("vectorindex: reading ids file: %w", err)
	}
	idx.ids = lines
	return idx, nil
}

func readLines(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := strings.TrimRight(string(b), "\n")
	if s == "" {
		return nil, nil
	}
	return strings.Split(s, "\n"), nil
}

func (n *nativeIndex) Build(ctx context.Context, vectors [][]float32, ids []string) error {
	if len(vectors) != len(ids) {
		return fmt.Errorf("vectorindex: %d vectors but %d ids", len(vectors), len(ids))
	}
	for i, v := range vectors {
		if len(v) != n.dim {
			return fmt.Errorf("vectorindex: vector %d has dim %d, want %d", i, len(v), n.dim)
		}
	}

	if _, err := n.db.ExecContext(ctx, "DROP TABLE IF EXISTS vec_index"); err != nil {
		return fmt.Errorf("vectorindex: dropping old table: %w", err)
	}
	// Cosine distance makes 1 - distance the inner product of unit
	// vectors, which is the score Search reports.
	schema := fmt.Sprintf(
		"CREATE VIRTUAL TABLE vec_index USING vec0(embedding float[%d] distance_metric=cosine)", n.dim)
	if _, err := n.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("vectorindex: creating vec0 table: %w", err)
	}

	tx, err := n.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO vec_index (rowid, embedding) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	for i, v := range vectors {
		if _, err := stmt.ExecContext(ctx, i, serializeFloat32(v)); err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}
	stmt.Close()
	if err := tx.Commit(); err != nil {
		return err
	}

	n.ids = append([]string(nil), ids...)
	return nil
}

func (n *nativeIndex) Save() error {
	f, err := os.Create(idsPath(n.dir, n.indexFile))
	if err != nil {
		return err
	}
	defer f.Close()
	for _, id := range n.ids {
		if _, err := fmt.Fprintln(f, id); err != nil {
			return err
		}
	}
	return writeMeta(n.dir, n.indexFile, Meta{
		Dim: n.dim, Metric: "cosine", Backend: string(BackendNative), Count: len(n.ids),
	})
}

func (n *nativeIndex) Count() int { return len(n.ids) }

func (n *nativeIndex) Search(ctx context.Context, queries [][]float32, k int) ([][]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("vectorindex: k must be > 0, got %d", k)
	}
	limit := k
	if limit > len(n.ids) {
		limit = len(n.ids)
	}

	out := make([][]Result, len(queries))
	for qi, q := range queries {
		if limit == 0 {
			out[qi] = nil
			continue
		}
		rows, err := n.db.QueryContext(ctx, `
			SELECT rowid, distance FROM vec_index
			WHERE embedding MATCH ? AND k = ?
			ORDER BY distance
		`, serializeFloat32(q), limit)
		if err != nil {
			return nil, fmt.Errorf("vectorindex: search: %w", err)
		}
		var res []Result
		for rows.Next() {
			var rowid int64
			var distance float64
			if err := rows.Scan(&rowid, &distance); err != nil {
				rows.Close()
				return nil, err
			}
			if int(rowid) < 0 || int(rowid) >= len(n.ids) {
				continue
			}
			res = append(res, Result{ID: n.ids[rowid], Score: float32(1.0 - distance)})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		out[qi] = res
	}
	return out, nil
}

func (n *nativeIndex) Close() error {
	return n.db.Close()
}

func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
