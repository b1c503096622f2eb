package transport

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lavandejoey/gorag/chat"
)

type fakeRunner struct {
	events  []chat.Event
	started chan struct{}
	ctxErr  chan error
}

func (f *fakeRunner) Run(ctx context.Context, chatID, message string, emit func(chat.Event)) error {
	if f.started != nil {
		close(f.started)
	}
	for _, e := range f.events {
		emit(e)
	}
	if f.ctxErr != nil {
		<-ctx.Done()
		f.ctxErr <- ctx.Err()
	}
	return nil
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestHandlerStreamsEventsInOrder(t *testing.T) {
	totalMs := int64(42)
	runner := &fakeRunner{events: []chat.Event{
		{Event: "chat_created", ChatID: "c1"},
		{Event: "stage", Stage: "retrieval"},
		{Event: "done", ChatID: "c1", TotalMs: &totalMs},
	}}
	srv := httptest.NewServer(NewHandler(runner))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"session_id": "s1", "message": "hi"}); err != nil {
		t.Fatalf("write init: %v", err)
	}

	var got []chat.Event
	for i := 0; i < 3; i++ {
		var e chat.Event
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("read event %d: %v", i, err)
		}
		got = append(got, e)
	}

	if len(got) != 3 || got[0].Event != "chat_created" || got[2].Event != "done" {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestHandlerRejectsEmptyMessage(t *testing.T) {
	runner := &fakeRunner{}
	srv := httptest.NewServer(NewHandler(runner))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"session_id": "s1", "message": ""}); err != nil {
		t.Fatalf("write init: %v", err)
	}

	var e chat.Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if e.Event != "error" {
		t.Errorf("event = %q, want error", e.Event)
	}
}

func TestHandlerRejectsMalformedInit(t *testing.T) {
	runner := &fakeRunner{}
	srv := httptest.NewServer(NewHandler(runner))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	var e chat.Event
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&e); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if e.Event != "error" {
		t.Errorf("event = %q, want error", e.Event)
	}
}

func TestHandlerCancelsRunnerOnClientDisconnect(t *testing.T) {
	runner := &fakeRunner{started: make(chan struct{}), ctxErr: make(chan error, 1)}
	srv := httptest.NewServer(NewHandler(runner))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := conn.WriteJSON(map[string]string{"session_id": "s1", "message": "hi"}); err != nil {
		t.Fatalf("write init: %v", err)
	}

	<-runner.started
	conn.Close()

	select {
	case err := <-runner.ctxErr:
		if err != context.Canceled {
			t.Errorf("ctx.Err() = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for runner context cancellation")
	}
}
