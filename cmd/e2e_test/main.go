package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lavandejoey/gorag"
	"github.com/lavandejoey/gorag/chat"
)

// A manual smoke test: ingest one doc into a throwaway index, run a single
// chat turn against a live model backend, and print the event stream. Not
// part of `go test` (it is a main package, not a _test.go file) — run
// directly with `go run ./cmd/e2e_test`.
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	backend := os.Getenv("GORAG_E2E_BACKEND")
	if backend == "" {
		backend = "ollama"
	}
	apiKey := os.Getenv("GORAG_E2E_API_KEY")
	model := os.Getenv("GORAG_E2E_MODEL")
	if model == "" {
		model = "llama3.1:8b"
	}

	docPath := "data/corpus/cuad/ACCURAYINC_09_01_2010-EX-10.31-DISTRIBUTOR AGREEMENT.txt"
	if len(os.Args) > 1 {
		docPath = os.Args[1]
	}
	absDocPath, err := filepath.Abs(docPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolving doc path: %v\n", err)
		os.Exit(1)
	}

	tmpDir, err := os.MkdirTemp("", "gorag-e2e-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	cfg := gorag.DefaultConfig()
	cfg.StorageDir = tmpDir
	cfg.Docs.Globs = []string{absDocPath}
	cfg.Docs.Exts = []string{".txt"}
	cfg.Model.Backend = backend
	cfg.Model.ModelName = model
	cfg.Model.APIKey = apiKey

	engine, err := gorag.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n=== INDEXING %s ===\n", absDocPath)
	if err := engine.BuildOrUpdateIndex(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "index build error: %v\n", err)
		os.Exit(1)
	}

	question := "What are the termination conditions in this agreement?"
	fmt.Fprintf(os.Stderr, "\n=== QUERYING: %s ===\n", question)

	var answer string
	err = engine.Chat(ctx, "", question, func(e chat.Event) {
		switch e.Event {
		case "rag":
			for i, d := range e.Docs {
				fmt.Fprintf(os.Stderr, "[%d] %s (score=%.4f)\n", i+1, d.Path, d.Score)
			}
		case "answer_token":
			answer += e.Token
		case "error":
			fmt.Fprintf(os.Stderr, "turn error: %s\n", e.Error)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "chat error: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "\n=== ANSWER ===\n")
	fmt.Println(answer)
}
