// Package store is the durable chunk store: the file/doc registry used for
// idempotent re-ingestion, and the chunk table retrieval reads from.
package store

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Doc represents a row in the docs table: one ingested source file.
type Doc struct {
	DocID string
	Path  string
	MTime int64
	SHA1  string
	MIME  string
}

// Chunk represents a row in the chunks table.
type Chunk struct {
	ChunkID string
	DocID   string
	Path    string
	Idx     int
	Start   int
	End     int
	Text    string
}

// Store wraps the SQLite database backing the chunk store.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at dbPath and applies the
// schema and any pending migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// DocID derives the deterministic doc_id for a path: the hex SHA-1 of the
// path string. Stable across runs so re-ingesting the same file updates
// the same row rather than inserting a duplicate.
func DocID(path string) string {
	sum := sha1.Sum([]byte(path))
	return fmt.Sprintf("%x", sum)
}

// ChunkID derives the deterministic chunk_id for the idx-th chunk of a
// document. Zero-padded so lexical order matches chunk order.
func ChunkID(docID string, idx int) string {
	return fmt.Sprintf("%s:%06d", docID, idx)
}

// GetDocByPath retrieves a document's registry row by its file path. It
// returns nil, nil if no such document has been ingested.
func (s *Store) GetDocByPath(ctx context.Context, path string) (*Doc, error) {
	d := &Doc{}
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, path, mtime, sha1, mime FROM docs WHERE path = ?
	`, path).Scan(&d.DocID, &d.Path, &d.MTime, &d.SHA1, &d.MIME)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// UpsertDoc inserts or updates a document's registry row, keyed by path.
func (s *Store) UpsertDoc(ctx context.Context, d Doc) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO docs (doc_id, path, mtime, sha1, mime)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			mtime = excluded.mtime,
			sha1  = excluded.sha1,
			mime  = excluded.mime
	`, d.DocID, d.Path, d.MTime, d.SHA1, d.MIME)
	return err
}

// DeleteChunksForDoc removes all chunks belonging to a document, ahead of
// a rebuild.
func (s *Store) DeleteChunksForDoc(ctx context.Context, docID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE doc_id = ?", docID)
	return err
}

// InsertChunks inserts a batch of chunks in one transaction, replacing any
// existing row with the same chunk_id. The batch is atomic on its own;
// DeleteChunksForDoc runs as a separate statement, so a delete followed by
// InsertChunks is not one transaction.
func (s *Store) InsertChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (chunk_id, doc_id, path, idx, start, end, text)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(chunk_id) DO UPDATE SET
				path  = excluded.path,
				idx   = excluded.idx,
				start = excluded.start,
				end   = excluded.end,
				text  = excluded.text
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range chunks {
			if _, err := stmt.ExecContext(ctx, c.ChunkID, c.DocID, c.Path, c.Idx, c.Start, c.End, c.Text); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetAllChunks returns every chunk in the store, ordered by chunk_id (and
// therefore by document and position within it).
func (s *Store) GetAllChunks(ctx context.Context) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, doc_id, path, idx, start, end, text
		FROM chunks ORDER BY chunk_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.Path, &c.Idx, &c.Start, &c.End, &c.Text); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetChunkTextByIDs fetches chunk rows for the given IDs, preserving the
// order of ids. Missing IDs are silently skipped rather than erroring,
// since the vector index and the chunk store can drift apart briefly
// during a rebuild.
func (s *Store) GetChunkTextByIDs(ctx context.Context, ids []string) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT chunk_id, doc_id, path, idx, start, end, text
		FROM chunks WHERE chunk_id IN (%s)
	`, joinPlaceholders(placeholders))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]Chunk, len(ids))
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.Path, &c.Idx, &c.Start, &c.End, &c.Text); err != nil {
			return nil, err
		}
		byID[c.ChunkID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func joinPlaceholders(ph []string) string {
	out := ph[0]
	for _, p := range ph[1:] {
		out += ", " + p
	}
	return out
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
