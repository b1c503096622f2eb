// Package retrieval glues the filesystem scanner, parser registry, chunker,
// embedder, chunk store, vector index, and reranker into a single
// build/update/retrieve surface.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lavandejoey/gorag/chunker"
	"github.com/lavandejoey/gorag/embedder"
	"github.com/lavandejoey/gorag/fsscan"
	"github.com/lavandejoey/gorag/parser"
	"github.com/lavandejoey/gorag/reranker"
	"github.com/lavandejoey/gorag/store"
	"github.com/lavandejoey/gorag/vectorindex"
)

// Config configures a Pipeline.
type Config struct {
	ScanOptions    fsscan.Options
	ChunkConfig    chunker.Config
	TopK           int
	CandidatesK    int
	RerankAlpha    float64
	PromptMaxChars int
	IndexDir       string
	IndexFile      string
}

// Pipeline is the retrieval substrate for one corpus.
type Pipeline struct {
	cfg      Config
	store    *store.Store
	embedder embedder.Embedder
	parsers  *parser.Registry
	index    vectorindex.Index
}

// New wires a Pipeline over an already-open chunk store and embedder. The
// vector index is opened lazily on the first BuildOrUpdate/Retrieve call.
func New(cfg Config, st *store.Store, emb embedder.Embedder) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, embedder: emb, parsers: parser.NewRegistry()}
}

func (p *Pipeline) ensureIndex() error {
	if p.index != nil {
		return nil
	}
	idx, err := vectorindex.Open(p.cfg.IndexDir, p.cfg.IndexFile, p.embedder.Dim(), vectorindex.BackendAuto)
	if err != nil {
		return fmt.Errorf("retrieval: opening vector index: %w", err)
	}
	p.index = idx
	return nil
}

// Snippet is one retrieved chunk, scored and reranked.
type Snippet struct {
	ChunkID string
	Path    string
	Text    string
	Score   float64
}

// BuildOrUpdate scans the configured corpus and idempotently brings the
// chunk store and vector index up to date. Unchanged files (same mtime)
// are no-ops; files with a changed mtime but identical content hash only
// update the stored mtime; everything else is reparsed, rechunked, and
// re-embedded.
func (p *Pipeline) BuildOrUpdate(ctx context.Context) error {
	items, err := fsscan.Scan(p.cfg.ScanOptions)
	if err != nil {
		return fmt.Errorf("retrieval: scanning corpus: %w", err)
	}

	dirty := false
	for _, item := range items {
		changed, err := p.syncDoc(ctx, item)
		if err != nil {
			slog.Warn("retrieval: skipping file", "path", item.Path, "error", err)
			continue
		}
		if changed {
			dirty = true
		}
	}

	if err := p.ensureIndex(); err != nil {
		return err
	}
	needsRebuild := dirty || p.index.Count() == 0 || !vectorindex.Exists(p.cfg.IndexDir, p.cfg.IndexFile)
	if !needsRebuild {
		return nil
	}
	return p.rebuildIndex(ctx)
}

// syncDoc brings one scanned file's docs/chunks rows in line with its
// current (mtime, sha1). It returns whether chunk content changed.
func (p *Pipeline) syncDoc(ctx context.Context, item fsscan.Item) (bool, error) {
	docID := store.DocID(item.Path)
	existing, err := p.store.GetDocByPath(ctx, item.Path)
	if err != nil {
		return false, err
	}

	if existing != nil && existing.MTime == item.MTime {
		return false, nil
	}
	if existing != nil && existing.SHA1 == item.SHA1 {
		return false, p.store.UpsertDoc(ctx, store.Doc{
			DocID: docID, Path: item.Path, MTime: item.MTime, SHA1: item.SHA1, MIME: existing.MIME,
		})
	}

	ext := strings.TrimPrefix(strings.ToLower(extOf(item.Path)), ".")
	prs, err := p.parsers.Get(ext)
	if err != nil {
		return false, err
	}
	result, err := prs.Parse(ctx, item.Path)
	if err != nil {
		return false, err
	}

	chunks := chunker.Split(result.Text, p.cfg.ChunkConfig)
	rows := make([]store.Chunk, len(chunks))
	for i, c := range chunks {
		rows[i] = store.Chunk{
			ChunkID: store.ChunkID(docID, i),
			DocID:   docID,
			Path:    item.Path,
			Idx:     i,
			Start:   c.Start,
			End:     c.End,
			Text:    c.Text,
		}
	}

	if err := p.store.UpsertDoc(ctx, store.Doc{
		DocID: docID, Path: item.Path, MTime: item.MTime, SHA1: item.SHA1, MIME: result.MIME,
	}); err != nil {
		return false, err
	}
	if err := p.store.DeleteChunksForDoc(ctx, docID); err != nil {
		return false, err
	}
	if err := p.store.InsertChunks(ctx, rows); err != nil {
		return false, err
	}
	return true, nil
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}

// rebuildIndex re-embeds every chunk currently in the chunk store and
// replaces the vector index wholesale, keeping id<->row alignment trivial
// and persistence atomic.
func (p *Pipeline) rebuildIndex(ctx context.Context) error {
	chunks, err := p.store.GetAllChunks(ctx)
	if err != nil {
		return fmt.Errorf("retrieval: loading chunks: %w", err)
	}
	if len(chunks) == 0 {
		return p.index.Save()
	}

	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		ids[i] = c.ChunkID
	}

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("retrieval: embedding chunks: %w", err)
	}
	if err := p.index.Build(ctx, vectors, ids); err != nil {
		return fmt.Errorf("retrieval: building index: %w", err)
	}
	return p.index.Save()
}

// Retrieve embeds query, searches the vector index for candidates, resolves
// their text from the chunk store, reranks, and returns the top topK.
func (p *Pipeline) Retrieve(ctx context.Context, query string, topK int) ([]Snippet, error) {
	if err := p.ensureIndex(); err != nil {
		return nil, err
	}
	if p.index.Count() == 0 {
		return nil, nil
	}

	k := topK
	if p.cfg.CandidatesK > k {
		k = p.cfg.CandidatesK
	}
	if k > p.index.Count() {
		k = p.index.Count()
	}

	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("retrieval: embedding query: %w", err)
	}
	hits, err := p.index.Search(ctx, vectors, k)
	if err != nil {
		return nil, fmt.Errorf("retrieval: searching index: %w", err)
	}
	if len(hits) == 0 || len(hits[0]) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits[0]))
	scoreByID := make(map[string]float64, len(hits[0]))
	for i, h := range hits[0] {
		ids[i] = h.ID
		scoreByID[h.ID] = float64(h.Score)
	}

	chunks, err := p.store.GetChunkTextByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("retrieval: resolving chunk text: %w", err)
	}

	candidates := make([]reranker.Candidate, len(chunks))
	for i, c := range chunks {
		candidates[i] = reranker.Candidate{ChunkID: c.ChunkID, Text: c.Text, Score: scoreByID[c.ChunkID]}
	}
	ranked := reranker.Rerank(query, candidates, p.cfg.RerankAlpha)

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	pathByID := make(map[string]string, len(chunks))
	for _, c := range chunks {
		pathByID[c.ChunkID] = c.Path
	}

	out := make([]Snippet, len(ranked))
	for i, r := range ranked {
		out[i] = Snippet{ChunkID: r.ChunkID, Path: pathByID[r.ChunkID], Text: r.Text, Score: r.Score}
	}
	return out, nil
}

// FormatForPrompt concatenates snippets as "[i] path (score=s.ssss)\ntext\n\n"
// blocks, 1-based and stable, stopping before maxChars is exceeded.
func FormatForPrompt(snips []Snippet, maxChars int) string {
	var b strings.Builder
	for i, s := range snips {
		block := fmt.Sprintf("[%d] %s (score=%.4f)\n%s\n\n", i+1, s.Path, s.Score, s.Text)
		if maxChars > 0 && b.Len()+len(block) > maxChars {
			break
		}
		b.WriteString(block)
	}
	return b.String()
}

// Close releases the underlying vector index.
func (p *Pipeline) Close() error {
	if p.index == nil {
		return nil
	}
	return p.index.Close()
}
