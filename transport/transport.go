// Package transport carries chat.Orchestrator events over a websocket
// connection, matching the JSON-frame protocol: one inbound init frame
// followed by a server-driven sequence of outbound event frames.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lavandejoey/gorag/chat"
)

// Runner matches chat.Orchestrator's Run signature so tests can substitute
// a fake without depending on the chat package's concrete dependencies.
type Runner interface {
	Run(ctx context.Context, chatID, message string, emit func(chat.Event)) error
}

// initFrame is the single inbound message a client sends right after
// upgrading the connection.
type initFrame struct {
	SessionID string `json:"session_id"`
	ChatID    string `json:"chat_id"`
	Message   string `json:"message"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin checks are left to a reverse proxy / CORS layer in front of
	// this service.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades a request to a websocket and drives one chat turn per
// connection lifetime.
type Handler struct {
	runner Runner
}

// NewHandler wraps a Runner (typically a *chat.Orchestrator) for use as an
// http.HandlerFunc at the chat websocket route.
func NewHandler(r Runner) *Handler {
	return &Handler{runner: r}
}

// ServeHTTP upgrades the connection, reads exactly one init frame, runs the
// turn, and streams back event frames in emission order. The connection is
// closed once a terminal done/error event has been sent, or immediately on
// a malformed init frame.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("transport: websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	_, raw, err := conn.ReadMessage()
	if err != nil {
		return
	}

	var init initFrame
	if err := json.Unmarshal(raw, &init); err != nil || init.Message == "" {
		writeEvent(conn, chat.Event{Event: "error", Error: "bad request"})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// A goroutine keeps reading from the connection and cancels the turn as
	// soon as a read fails, which is how the client going away surfaces;
	// any further inbound message is read and ignored.
	go watchDisconnect(conn, cancel)

	err = h.runner.Run(ctx, init.ChatID, init.Message, func(e chat.Event) {
		if writeErr := writeEvent(conn, e); writeErr != nil {
			slog.Warn("transport: failed writing event frame", "error", writeErr)
			cancel()
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("transport: chat turn failed", "error", err)
	}
}

func writeEvent(conn *websocket.Conn, e chat.Event) error {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(e)
}

// watchDisconnect blocks on reads from conn (the client is not expected to
// send anything further after its init frame) and cancels ctx the moment
// the read fails, which is how a client disconnect surfaces with gorilla's
// API.
func watchDisconnect(conn *websocket.Conn, cancel context.CancelFunc) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			cancel()
			return
		}
	}
}
