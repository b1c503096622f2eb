package store

// schemaDDL is the DDL for the chunk store. It holds two tables: one row
// per ingested document for change detection, one row per chunk produced
// from that document. Vector embeddings live in their own sqlite file
// managed by the vectorindex package, not here.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS docs (
    doc_id TEXT PRIMARY KEY,
    path   TEXT NOT NULL UNIQUE,
    mtime  INTEGER NOT NULL,
    sha1   TEXT NOT NULL,
    mime   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
    chunk_id TEXT PRIMARY KEY,
    doc_id   TEXT NOT NULL REFERENCES docs(doc_id) ON DELETE CASCADE,
    path     TEXT NOT NULL,
    idx      INTEGER NOT NULL,
    start    INTEGER NOT NULL,
    end      INTEGER NOT NULL,
    text     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_doc_id ON chunks(doc_id);
`
