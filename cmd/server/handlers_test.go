package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lavandejoey/gorag/chat"
	"github.com/lavandejoey/gorag/history"
)

type fakeEngine struct {
	chats      []history.Chat
	messages   []history.Message
	deletedID  string
	refreshed  bool
	deleteErr  error
	refreshErr error
}

func (f *fakeEngine) BuildOrUpdateIndex(ctx context.Context) error {
	f.refreshed = true
	return f.refreshErr
}

func (f *fakeEngine) Chat(ctx context.Context, chatID, message string, emit func(chat.Event)) error {
	return nil
}

func (f *fakeEngine) ListChats(ctx context.Context, limit int) ([]history.Chat, error) {
	return f.chats, nil
}

func (f *fakeEngine) GetMessages(ctx context.Context, chatID string, limit int) ([]history.Message, error) {
	return f.messages, nil
}

func (f *fakeEngine) DeleteChat(ctx context.Context, chatID string) error {
	f.deletedID = chatID
	return f.deleteErr
}

func (f *fakeEngine) Close() error { return nil }

func TestHandleListChatsReturnsJSONArray(t *testing.T) {
	eng := &fakeEngine{chats: []history.Chat{
		{ChatID: "c1", Title: "hello", CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}}
	h := newHandler(eng)

	req := httptest.NewRequest(http.MethodGet, "/v1/chats", nil)
	rec := httptest.NewRecorder()
	h.handleListChats(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got []history.Chat
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 1 || got[0].ChatID != "c1" {
		t.Errorf("unexpected chats: %+v", got)
	}
}

func TestHandleGetMessagesRequiresChatID(t *testing.T) {
	h := newHandler(&fakeEngine{})

	req := httptest.NewRequest(http.MethodGet, "/v1/chats//messages", nil)
	rec := httptest.NewRecorder()
	h.handleGetMessages(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleDeleteChatReturnsOK(t *testing.T) {
	eng := &fakeEngine{}
	mux := http.NewServeMux()
	h := newHandler(eng)
	mux.HandleFunc("DELETE /v1/chats/{chat_id}", h.handleDeleteChat)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/chats/c1", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !got["ok"] {
		t.Errorf("expected {ok:true}, got %+v", got)
	}
	if eng.deletedID != "c1" {
		t.Errorf("deleted id = %q, want c1", eng.deletedID)
	}
}

func TestHandleHealth(t *testing.T) {
	h := newHandler(&fakeEngine{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
