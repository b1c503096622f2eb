// Package gorag wires the corpus scanner, chunk store, embedder, vector
// index, reranker, chat history, LM provider, and chat orchestrator into one
// engine: build or refresh a retrieval index over a document corpus, then run
// chat turns against it with streamed, think/answer-demuxed generation.
package gorag

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lavandejoey/gorag/budget"
	"github.com/lavandejoey/gorag/chat"
	"github.com/lavandejoey/gorag/chunker"
	"github.com/lavandejoey/gorag/embedder"
	"github.com/lavandejoey/gorag/fsscan"
	"github.com/lavandejoey/gorag/history"
	"github.com/lavandejoey/gorag/llm"
	"github.com/lavandejoey/gorag/retrieval"
	"github.com/lavandejoey/gorag/store"
	"github.com/lavandejoey/gorag/tokencount"
)

// Engine is the main entry point for the RAG serving engine.
type Engine interface {
	// BuildOrUpdateIndex scans the configured document corpus and brings the
	// chunk store and vector index up to date. Safe to call repeatedly; it
	// is a no-op over an unchanged corpus.
	BuildOrUpdateIndex(ctx context.Context) error

	// Chat runs one turn: retrieval, prompt assembly, streamed generation,
	// and persistence. chatID may be empty to start a new chat. emit is
	// called synchronously, in order, for every event of the turn.
	Chat(ctx context.Context, chatID, message string, emit func(chat.Event)) error

	// ListChats returns up to limit chats, most recently updated first.
	ListChats(ctx context.Context, limit int) ([]history.Chat, error)

	// GetMessages returns up to limit messages for a chat, oldest first.
	GetMessages(ctx context.Context, chatID string, limit int) ([]history.Message, error)

	// DeleteChat removes a chat and its messages and summary.
	DeleteChat(ctx context.Context, chatID string) error

	// Close cleanly shuts down the engine.
	Close() error
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg       Config
	store     *store.Store
	history   *history.Store
	retrieval *retrieval.Pipeline
	chat      *chat.Orchestrator
}

// New constructs an Engine from cfg: opens the chunk store and history
// store, selects the configured embedder backend, wires the retrieval
// pipeline, constructs the chat LM provider, and wires a chat.Orchestrator
// over all of it.
func New(cfg Config) (Engine, error) {
	chunkStorePath := filepath.Join(cfg.resolveIndexDir(), orDefault(cfg.RAG.SQLiteFile, "chunks.db"))
	st, err := store.New(chunkStorePath)
	if err != nil {
		return nil, fmt.Errorf("gorag: opening chunk store: %w", err)
	}

	emb, err := newEmbedder(cfg.RAG)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("gorag: constructing embedder: %w", err)
	}

	rp := retrieval.New(retrieval.Config{
		ScanOptions: fsscan.Options{
			Globs:            cfg.Docs.Globs,
			Exts:             cfg.Docs.Exts,
			MaxFileSizeBytes: int64(cfg.RAG.MaxFileSizeMB) << 20,
		},
		ChunkConfig: chunker.Config{
			ChunkSize: cfg.RAG.ChunkSize,
			Overlap:   cfg.RAG.ChunkOverlap,
		},
		TopK:           cfg.RAG.TopK,
		CandidatesK:    cfg.RAG.CandidatesK,
		RerankAlpha:    cfg.RAG.RerankAlpha,
		PromptMaxChars: cfg.RAG.PromptMaxChars,
		IndexDir:       cfg.resolveIndexDir(),
		IndexFile:      orDefault(cfg.RAG.IndexFile, "vectors.idx"),
	}, st, emb)

	hs, err := history.Open(cfg.resolveHistoryDBPath())
	if err != nil {
		rp.Close()
		st.Close()
		return nil, fmt.Errorf("gorag: opening history store: %w", err)
	}

	chatLLM, err := llm.NewProvider(llm.Config{
		Provider: cfg.Model.Backend,
		Model:    cfg.Model.ModelName,
		BaseURL:  cfg.Model.BaseURL,
		APIKey:   cfg.Model.APIKey,
	})
	if err != nil {
		hs.Close()
		rp.Close()
		st.Close()
		return nil, fmt.Errorf("gorag: constructing chat provider: %w", err)
	}

	orch := chat.New(chat.Config{
		TopK: cfg.RAG.TopK,
		Model: chat.ModelParams{
			Name:         cfg.Model.ModelName,
			Temperature:  cfg.Model.Temperature,
			TopP:         cfg.Model.TopP,
			MaxNewTokens: cfg.Model.MaxNewTokens,
		},
		Limits: budget.Limits{
			ModelContextWindow: cfg.Budget.ModelContextWindow,
			SummaryTokenLimit:  cfg.Budget.SummaryTokenLimit,
			RecentMessageLimit: cfg.Budget.RecentMessageLimit,
			MemoryTokenLimit:   cfg.Budget.MemoryTokenLimit,
			EvidenceTokenLimit: cfg.Budget.EvidenceTokenLimit,
		},
	}, hs, rp, chatLLM, tokencount.Default())

	return &engine{cfg: cfg, store: st, history: hs, retrieval: rp, chat: orch}, nil
}

// newEmbedder selects an Embedder implementation per cfg.EmbedderBackend.
func newEmbedder(cfg RAGConfig) (embedder.Embedder, error) {
	switch cfg.EmbedderBackend {
	case "", "hashing":
		return embedder.NewHashing(cfg.EmbedDim), nil
	case "remote":
		provider, err := llm.NewProvider(llm.Config{
			Provider: cfg.Embedding.Backend,
			Model:    cfg.Embedding.ModelName,
			BaseURL:  cfg.Embedding.BaseURL,
			APIKey:   cfg.Embedding.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("constructing embedding provider: %w", err)
		}
		return embedder.NewRemote(provider, cfg.EmbedDim), nil
	default:
		return nil, fmt.Errorf("unknown embedder backend: %s", cfg.EmbedderBackend)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// BuildOrUpdateIndex scans the configured corpus and brings the index up to
// date, unless RAG is disabled, in which case it is a no-op.
func (e *engine) BuildOrUpdateIndex(ctx context.Context) error {
	if !e.cfg.RAG.Enabled {
		return nil
	}
	return e.retrieval.BuildOrUpdate(ctx)
}

// Chat runs one turn through the chat orchestrator.
func (e *engine) Chat(ctx context.Context, chatID, message string, emit func(chat.Event)) error {
	return e.chat.Run(ctx, chatID, message, emit)
}

// ListChats delegates to the history store.
func (e *engine) ListChats(ctx context.Context, limit int) ([]history.Chat, error) {
	return e.history.ListChats(ctx, limit)
}

// GetMessages delegates to the history store.
func (e *engine) GetMessages(ctx context.Context, chatID string, limit int) ([]history.Message, error) {
	return e.history.GetMessages(ctx, chatID, limit)
}

// DeleteChat delegates to the history store.
func (e *engine) DeleteChat(ctx context.Context, chatID string) error {
	return e.history.DeleteChat(ctx, chatID)
}

// Close shuts down every owned resource, in reverse acquisition order,
// returning the first error encountered but attempting every close.
func (e *engine) Close() error {
	var firstErr error
	if err := e.history.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing history store: %w", err)
	}
	if err := e.retrieval.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing retrieval index: %w", err)
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing chunk store: %w", err)
	}
	return firstErr
}
