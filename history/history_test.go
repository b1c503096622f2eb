package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateChatAndAddMessage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chatID, err := s.CreateChat(ctx, "hello there, how are you today")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if chatID == "" {
		t.Fatal("expected non-empty chat id")
	}

	if err := s.AddMessage(ctx, chatID, "user", "hello there, how are you today"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	if err := s.AddMessage(ctx, chatID, "assistant", "I'm doing well, thanks!"); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}

	msgs, err := s.GetMessages(ctx, chatID, 100)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("messages not in insertion order: %+v", msgs)
	}
}

func TestListChatsOrderedByUpdatedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateChat(ctx, "first chat")
	b, _ := s.CreateChat(ctx, "second chat")

	// Touch b after a so it sorts first.
	if err := s.TouchChat(ctx, b); err != nil {
		t.Fatalf("TouchChat: %v", err)
	}

	chats, err := s.ListChats(ctx, 10)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}
	if chats[0].ChatID != b || chats[1].ChatID != a {
		t.Errorf("chats not ordered by updated_at desc: %+v", chats)
	}
}

func TestDeleteChatCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	chatID, _ := s.CreateChat(ctx, "temp chat")
	s.AddMessage(ctx, chatID, "user", "hi")
	s.SaveSummary(ctx, Summary{ChatID: chatID, Summary: "greeting", TokenCount: 2, LastTurnID: 1})

	if err := s.DeleteChat(ctx, chatID); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}

	msgs, err := s.GetMessages(ctx, chatID, 10)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected messages to be cascade-deleted, got %d", len(msgs))
	}

	sum, err := s.GetSummary(ctx, chatID)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if sum != nil {
		t.Errorf("expected summary to be cascade-deleted, got %+v", sum)
	}
}

func TestSaveSummaryUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	chatID, _ := s.CreateChat(ctx, "chat")

	s.SaveSummary(ctx, Summary{ChatID: chatID, Summary: "v1", TokenCount: 10, LastTurnID: 1})
	s.SaveSummary(ctx, Summary{ChatID: chatID, Summary: "v2", TokenCount: 20, LastTurnID: 2})

	sum, err := s.GetSummary(ctx, chatID)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if sum.Summary != "v2" || sum.TokenCount != 20 {
		t.Errorf("got %+v, want v2/20 (upserted)", sum)
	}
}

func TestTitleFromFirstUserTextTruncates(t *testing.T) {
	long := strings.Repeat("word ", 30)
	title := titleFromFirstUserText(long)
	if len([]rune(title)) > maxTitleLen {
		t.Errorf("title length %d exceeds max %d", len([]rune(title)), maxTitleLen)
	}
}

func TestTitleFromEmptyTextDefaultsToNewChat(t *testing.T) {
	if got := titleFromFirstUserText("   "); got != "New chat" {
		t.Errorf("got %q, want %q", got, "New chat")
	}
}
