package store

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "chunks.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertDocAndGetByPath(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	d := Doc{DocID: DocID("a.txt"), Path: "a.txt", MTime: 100, SHA1: "abc", MIME: "text/plain"}
	if err := s.UpsertDoc(ctx, d); err != nil {
		t.Fatalf("UpsertDoc: %v", err)
	}

	got, err := s.GetDocByPath(ctx, "a.txt")
	if err != nil {
		t.Fatalf("GetDocByPath: %v", err)
	}
	if got == nil || got.SHA1 != "abc" || got.MTime != 100 {
		t.Fatalf("got %+v, want sha1=abc mtime=100", got)
	}

	// Re-upsert with new sha1/mtime updates the same row (same path).
	d.SHA1 = "def"
	d.MTime = 200
	if err := s.UpsertDoc(ctx, d); err != nil {
		t.Fatalf("UpsertDoc (update): %v", err)
	}
	got, err = s.GetDocByPath(ctx, "a.txt")
	if err != nil {
		t.Fatalf("GetDocByPath: %v", err)
	}
	if got.SHA1 != "def" || got.MTime != 200 {
		t.Fatalf("got %+v, want sha1=def mtime=200", got)
	}
}

func TestGetDocByPathMissing(t *testing.T) {
	s := openTestStore(t)
	got, err := s.GetDocByPath(context.Background(), "missing.txt")
	if err != nil {
		t.Fatalf("GetDocByPath: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v, want nil", got)
	}
}

func TestInsertChunksAndGetAll(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	docID := DocID("doc.txt")

	if err := s.UpsertDoc(ctx, Doc{DocID: docID, Path: "doc.txt", MTime: 1, SHA1: "x", MIME: "text/plain"}); err != nil {
		t.Fatalf("UpsertDoc: %v", err)
	}

	chunks := []Chunk{
		{ChunkID: ChunkID(docID, 0), DocID: docID, Path: "doc.txt", Idx: 0, Start: 0, End: 5, Text: "hello"},
		{ChunkID: ChunkID(docID, 1), DocID: docID, Path: "doc.txt", Idx: 1, Start: 5, End: 10, Text: "world"},
	}
	if err := s.InsertChunks(ctx, chunks); err != nil {
		t.Fatalf("InsertChunks: %v", err)
	}

	all, err := s.GetAllChunks(ctx)
	if err != nil {
		t.Fatalf("GetAllChunks: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d chunks, want 2", len(all))
	}
	if all[0].Idx != 0 || all[1].Idx != 1 {
		t.Fatalf("chunks not in idx order: %+v", all)
	}
}

func TestDeleteChunksForDocIsolatesOtherDocs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	docA, docB := DocID("a.txt"), DocID("b.txt")
	s.UpsertDoc(ctx, Doc{DocID: docA, Path: "a.txt", MTime: 1, SHA1: "x", MIME: "text/plain"})
	s.UpsertDoc(ctx, Doc{DocID: docB, Path: "b.txt", MTime: 1, SHA1: "y", MIME: "text/plain"})

	s.InsertChunks(ctx, []Chunk{
		{ChunkID: ChunkID(docA, 0), DocID: docA, Path: "a.txt", Idx: 0, Start: 0, End: 1, Text: "a"},
		{ChunkID: ChunkID(docB, 0), DocID: docB, Path: "b.txt", Idx: 0, Start: 0, End: 1, Text: "b"},
	})

	if err := s.DeleteChunksForDoc(ctx, docA); err != nil {
		t.Fatalf("DeleteChunksForDoc: %v", err)
	}

	all, err := s.GetAllChunks(ctx)
	if err != nil {
		t.Fatalf("GetAllChunks: %v", err)
	}
	if len(all) != 1 || all[0].DocID != docB {
		t.Fatalf("got %+v, want only docB's chunk", all)
	}
}

func TestInsertChunksReplacesOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	docID := DocID("doc.txt")
	s.UpsertDoc(ctx, Doc{DocID: docID, Path: "doc.txt", MTime: 1, SHA1: "x", MIME: "text/plain"})

	id := ChunkID(docID, 0)
	s.InsertChunks(ctx, []Chunk{{ChunkID: id, DocID: docID, Path: "doc.txt", Idx: 0, Start: 0, End: 5, Text: "old"}})
	s.InsertChunks(ctx, []Chunk{{ChunkID: id, DocID: docID, Path: "doc.txt", Idx: 0, Start: 0, End: 5, Text: "new"}})

	all, err := s.GetAllChunks(ctx)
	if err != nil {
		t.Fatalf("GetAllChunks: %v", err)
	}
	if len(all) != 1 || all[0].Text != "new" {
		t.Fatalf("got %+v, want single chunk with text=new", all)
	}
}

func TestGetChunkTextByIDsPreservesOrderAndSkipsMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	docID := DocID("doc.txt")
	s.UpsertDoc(ctx, Doc{DocID: docID, Path: "doc.txt", MTime: 1, SHA1: "x", MIME: "text/plain"})

	c0, c1 := ChunkID(docID, 0), ChunkID(docID, 1)
	s.InsertChunks(ctx, []Chunk{
		{ChunkID: c0, DocID: docID, Path: "doc.txt", Idx: 0, Start: 0, End: 1, Text: "zero"},
		{ChunkID: c1, DocID: docID, Path: "doc.txt", Idx: 1, Start: 1, End: 2, Text: "one"},
	})

	got, err := s.GetChunkTextByIDs(ctx, []string{c1, "nonexistent", c0})
	if err != nil {
		t.Fatalf("GetChunkTextByIDs: %v", err)
	}
	if len(got) != 2 || got[0].ChunkID != c1 || got[1].ChunkID != c0 {
		t.Fatalf("got %+v, want [c1, c0] in that order", got)
	}
}
