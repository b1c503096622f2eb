package gorag

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the engine.
type Config struct {
	// StorageDir controls where the engine's state lives when paths below
	// are left empty. Defaults to ~/.gorag.
	StorageDir string `json:"storage_dir"`

	Docs   DocsConfig   `json:"docs"`
	RAG    RAGConfig    `json:"rag"`
	Model  ModelConfig  `json:"model"`
	Budget BudgetConfig `json:"budget"`

	// HistoryDBPath is the full path to the history store's sqlite file.
	// If empty, defaults to "<StorageDir>/history.db".
	HistoryDBPath string `json:"history_db_path"`
}

// DocsConfig enumerates the document corpus to scan.
type DocsConfig struct {
	Globs []string `json:"globs"`
	Exts  []string `json:"exts"`
}

// RAGConfig configures the retrieval substrate.
type RAGConfig struct {
	Enabled         bool    `json:"enabled"`
	MaxFileSizeMB   int     `json:"max_file_size_mb"`
	ChunkSize       int     `json:"chunk_size"`
	ChunkOverlap    int     `json:"chunk_overlap"`
	TopK            int     `json:"top_k"`
	CandidatesK     int     `json:"candidates_k"`
	EmbedderBackend string  `json:"embedder_backend"` // "hashing" or "remote"
	EmbedDim        int     `json:"embed_dim"`
	RerankAlpha     float64 `json:"rerank_alpha"`
	PromptMaxChars  int     `json:"prompt_max_chars"`

	// IndexDir is where the chunk store and vector index payloads live. If
	// empty, defaults to "<StorageDir>/rag".
	IndexDir   string `json:"index_dir"`
	SQLiteFile string `json:"sqlite_file"`
	IndexFile  string `json:"index_file"`

	// Embedding is the remote embedder's backend configuration; only
	// consulted when EmbedderBackend == "remote".
	Embedding ModelConfig `json:"embedding"`
}

// ModelConfig configures an LM backend.
type ModelConfig struct {
	Backend      string  `json:"backend"` // ollama, lmstudio, openrouter, openai, groq, xai, gemini, custom
	ModelName    string  `json:"model_name"`
	BaseURL      string  `json:"base_url"`
	APIKey       string  `json:"api_key"`
	Temperature  float64 `json:"temperature"`
	TopP         float64 `json:"top_p"`
	MaxNewTokens int     `json:"max_new_tokens"`
	Stream       bool    `json:"stream"`
	Think        bool    `json:"think"`
}

// BudgetConfig bounds the prompt assembled for each turn.
type BudgetConfig struct {
	ModelContextWindow int `json:"model_context_window"`
	SummaryTokenLimit  int `json:"summary_token_limit"`
	RecentMessageLimit int `json:"recent_message_limit"`
	MemoryTokenLimit   int `json:"memory_token_limit"`
	EvidenceTokenLimit int `json:"evidence_token_limit"`
}

// DefaultConfig returns a Config with sensible defaults for local inference.
func DefaultConfig() Config {
	return Config{
		StorageDir: "home",
		Docs: DocsConfig{
			Globs: []string{"./docs/**/*"},
			Exts:  []string{".txt", ".md", ".pdf"},
		},
		RAG: RAGConfig{
			Enabled:         true,
			MaxFileSizeMB:   25,
			ChunkSize:       800,
			ChunkOverlap:    120,
			TopK:            5,
			CandidatesK:     20,
			EmbedderBackend: "hashing",
			EmbedDim:        2048,
			RerankAlpha:     0.10,
			PromptMaxChars:  6000,
			SQLiteFile:      "chunks.db",
			IndexFile:       "vectors.idx",
		},
		Model: ModelConfig{
			Backend:      "ollama",
			ModelName:    "llama3.1:8b",
			BaseURL:      "http://localhost:11434",
			Temperature:  0.2,
			TopP:         0.9,
			MaxNewTokens: 1024,
			Stream:       true,
			Think:        true,
		},
		Budget: BudgetConfig{
			ModelContextWindow: 8192,
			SummaryTokenLimit:  512,
			RecentMessageLimit: 12,
			MemoryTokenLimit:   512,
			EvidenceTokenLimit: 2048,
		},
	}
}

// resolveStorageDir computes the directory under which state files live.
func (c *Config) resolveStorageDir() string {
	switch c.StorageDir {
	case "local", "cwd":
		return "."
	case "":
		return "."
	default:
		if filepath.IsAbs(c.StorageDir) {
			return c.StorageDir
		}
		if c.StorageDir == "home" {
			home, err := os.UserHomeDir()
			if err != nil {
				return ".gorag"
			}
			return filepath.Join(home, ".gorag")
		}
		return c.StorageDir
	}
}

// resolveHistoryDBPath returns the configured history store path, or a
// default derived from StorageDir.
func (c *Config) resolveHistoryDBPath() string {
	if c.HistoryDBPath != "" {
		return c.HistoryDBPath
	}
	return filepath.Join(c.resolveStorageDir(), "history.db")
}

// resolveIndexDir returns the configured RAG index directory, or a default
// derived from StorageDir.
func (c *Config) resolveIndexDir() string {
	if c.RAG.IndexDir != "" {
		return c.RAG.IndexDir
	}
	return filepath.Join(c.resolveStorageDir(), "rag")
}
