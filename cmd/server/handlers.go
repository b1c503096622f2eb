package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lavandejoey/gorag"
	"github.com/lavandejoey/gorag/chat"
)

type handler struct {
	engine gorag.Engine
}

func newHandler(e gorag.Engine) *handler {
	return &handler{engine: e}
}

// chatRunner adapts gorag.Engine to transport.Runner, so the websocket
// handler depends only on the narrow interface it actually needs.
type chatRunner struct {
	engine gorag.Engine
}

func (r chatRunner) Run(ctx context.Context, chatID, message string, emit func(chat.Event)) error {
	return r.engine.Chat(ctx, chatID, message, emit)
}

const defaultListLimit = 50

// GET /v1/chats?limit=N
func (h *handler) handleListChats(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, defaultListLimit)
	chats, err := h.engine.ListChats(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		slog.Error("list chats error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// GET /v1/chats/{chat_id}/messages?limit=N
func (h *handler) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chat_id")
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	limit := parseLimit(r, 200)
	msgs, err := h.engine.GetMessages(r.Context(), chatID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load messages")
		slog.Error("get messages error", "chat_id", chatID, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// DELETE /v1/chats/{chat_id}
func (h *handler) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chat_id")
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "chat_id is required")
		return
	}
	if err := h.engine.DeleteChat(r.Context(), chatID); err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		slog.Error("delete chat error", "chat_id", chatID, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// POST /v1/index/refresh
func (h *handler) handleRefreshIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.BuildOrUpdateIndex(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "index refresh failed")
		slog.Error("index refresh error", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /health
func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func parseLimit(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%s", msg)})
}
