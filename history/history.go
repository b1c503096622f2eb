// Package history is the durable chat transcript store: chats, their
// messages, and rolling per-chat summaries.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Chat is a row in the chats table.
type Chat struct {
	ChatID    string    `json:"chat_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a row in the messages table.
type Message struct {
	MsgID     int64     `json:"msg_id"`
	ChatID    string    `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is a row in the chat_summaries table.
type Summary struct {
	ChatID     string
	Summary    string
	TokenCount int
	LastTurnID int64
	Timestamp  time.Time
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS chats (
    chat_id    TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
    msg_id     INTEGER PRIMARY KEY AUTOINCREMENT,
    chat_id    TEXT NOT NULL REFERENCES chats(chat_id) ON DELETE CASCADE,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, msg_id);

CREATE TABLE IF NOT EXISTS chat_summaries (
    chat_id      TEXT PRIMARY KEY REFERENCES chats(chat_id) ON DELETE CASCADE,
    summary      TEXT NOT NULL,
    token_count  INTEGER NOT NULL,
    last_turn_id INTEGER NOT NULL,
    timestamp    DATETIME NOT NULL
);
`

// Store wraps the SQLite database backing chat history.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at dbPath.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("history: creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("history: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: pinging database: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const maxTitleLen = 48

// titleFromFirstUserText derives a chat title from its first user message,
// collapsing whitespace and truncating to maxTitleLen runes with an
// ellipsis.
func titleFromFirstUserText(text string) string {
	s := strings.Join(strings.Fields(text), " ")
	if s == "" {
		return "New chat"
	}
	runes := []rune(s)
	if len(runes) <= maxTitleLen {
		return s
	}
	return string(runes[:maxTitleLen-1]) + "…"
}

// CreateChat allocates a new opaque chat id and inserts its row.
func (s *Store) CreateChat(ctx context.Context, firstUserText string) (string, error) {
	chatID := uuid.NewString()
	if err := s.EnsureChat(ctx, chatID, firstUserText); err != nil {
		return "", err
	}
	return chatID, nil
}

// EnsureChat inserts a chats row for chatID if one doesn't already exist.
// The title is derived from firstUserText; existing rows are left alone.
func (s *Store) EnsureChat(ctx context.Context, chatID, firstUserText string) error {
	now := time.Now().UTC()
	title := titleFromFirstUserText(firstUserText)
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO chats (chat_id, title, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, chatID, title, now, now)
	return err
}

// TouchChat bumps a chat's updated_at to now.
func (s *Store) TouchChat(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE chats SET updated_at = ? WHERE chat_id = ?", time.Now().UTC(), chatID)
	return err
}

// ListChats returns up to limit chats, most recently updated first.
func (s *Store) ListChats(ctx context.Context, limit int) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chat_id, title, created_at, updated_at
		FROM chats ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ChatID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetMessages returns up to limit messages for chatID, oldest first.
func (s *Store) GetMessages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT msg_id, chat_id, role, content, created_at
		FROM messages WHERE chat_id = ? ORDER BY msg_id ASC LIMIT ?
	`, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.MsgID, &m.ChatID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteChat removes a chat and (via cascade) its messages and summary.
func (s *Store) DeleteChat(ctx context.Context, chatID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chats WHERE chat_id = ?", chatID)
	return err
}

// AddMessage appends one message to chatID and bumps the chat's updated_at.
func (s *Store) AddMessage(ctx context.Context, chatID, role, content string) error {
	now := time.Now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO messages (chat_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		chatID, role, content, now); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE chats SET updated_at = ? WHERE chat_id = ?", now, chatID); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SaveSummary upserts the rolling summary for chatID.
func (s *Store) SaveSummary(ctx context.Context, sum Summary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_summaries (chat_id, summary, token_count, last_turn_id, timestamp)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			summary      = excluded.summary,
			token_count  = excluded.token_count,
			last_turn_id = excluded.last_turn_id,
			timestamp    = excluded.timestamp
	`, sum.ChatID, sum.Summary, sum.TokenCount, sum.LastTurnID, time.Now().UTC())
	return err
}

// GetSummary returns the rolling summary for chatID, or nil if none exists.
func (s *Store) GetSummary(ctx context.Context, chatID string) (*Summary, error) {
	sum := &Summary{}
	err := s.db.QueryRowContext(ctx, `
		SELECT chat_id, summary, token_count, last_turn_id, timestamp
		FROM chat_summaries WHERE chat_id = ?
	`, chatID).Scan(&sum.ChatID, &sum.Summary, &sum.TokenCount, &sum.LastTurnID, &sum.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sum, nil
}
