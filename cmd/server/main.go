package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lavandejoey/gorag"
	"github.com/lavandejoey/gorag/transport"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (JSON)")
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	// Structured JSON logging.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg := gorag.DefaultConfig()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			slog.Error("opening config", "error", err)
			os.Exit(1)
		}
		if err := json.NewDecoder(f).Decode(&cfg); err != nil {
			f.Close()
			slog.Error("parsing config", "error", err)
			os.Exit(1)
		}
		f.Close()
	}

	// Override from environment variables.
	if v := os.Getenv("GORAG_STORAGE_DIR"); v != "" {
		cfg.StorageDir = v
	}
	if v := os.Getenv("GORAG_MODEL_BASE_URL"); v != "" {
		cfg.Model.BaseURL = v
	}
	if v := os.Getenv("GORAG_MODEL_API_KEY"); v != "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("GORAG_MODEL_NAME"); v != "" {
		cfg.Model.ModelName = v
	}
	if v := os.Getenv("GORAG_MODEL_BACKEND"); v != "" {
		cfg.Model.Backend = v
	}
	if v := os.Getenv("GORAG_EMBED_BASE_URL"); v != "" {
		cfg.RAG.Embedding.BaseURL = v
	}
	if v := os.Getenv("GORAG_EMBED_API_KEY"); v != "" {
		cfg.RAG.Embedding.APIKey = v
	}
	if v := os.Getenv("GORAG_EMBED_MODEL"); v != "" {
		cfg.RAG.Embedding.ModelName = v
	}
	if v := os.Getenv("GORAG_EMBED_BACKEND"); v != "" {
		cfg.RAG.Embedding.Backend = v
	}

	// Fallback: check well-known provider env vars for API keys.
	if cfg.Model.APIKey == "" {
		switch cfg.Model.Backend {
		case "openai":
			cfg.Model.APIKey = os.Getenv("OPENAI_API_KEY")
		case "groq":
			cfg.Model.APIKey = os.Getenv("GROQ_API_KEY")
		case "openrouter":
			cfg.Model.APIKey = os.Getenv("OPENROUTER_API_KEY")
		case "xai":
			cfg.Model.APIKey = os.Getenv("XAI_API_KEY")
		case "gemini":
			cfg.Model.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	apiKey := os.Getenv("GORAG_API_KEY")
	corsOrigins := os.Getenv("GORAG_CORS_ORIGINS")

	engine, err := gorag.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	if err := engine.BuildOrUpdateIndex(context.Background()); err != nil {
		slog.Warn("initial index build failed, serving with a stale or empty index", "error", err)
	}

	h := newHandler(engine)
	mux := http.NewServeMux()

	mux.Handle("GET /v1/chat/ws", transport.NewHandler(chatRunner{engine}))
	mux.HandleFunc("GET /v1/chats", h.handleListChats)
	mux.HandleFunc("GET /v1/chats/{chat_id}/messages", h.handleGetMessages)
	mux.HandleFunc("DELETE /v1/chats/{chat_id}", h.handleDeleteChat)
	mux.HandleFunc("POST /v1/index/refresh", h.handleRefreshIndex)
	mux.HandleFunc("GET /health", h.handleHealth)

	// Middleware chain: recovery -> cors -> auth -> logging -> mux
	var handler http.Handler = mux
	handler = logMiddleware(handler)
	handler = authMiddleware(apiKey, handler)
	handler = corsMiddleware(corsOrigins, handler)
	handler = recoveryMiddleware(handler)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming chat responses run long
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("server stopped")
}
