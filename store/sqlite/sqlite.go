package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/smallnest/docchat/memory"
	"github.com/smallnest/docchat/store"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// Options configures the SQLite database.
type Options struct {
	Path      string
	TableName string // Default "chat_messages"
}

// Store keeps all session histories in one table.
type Store struct {
	db        *sql.DB
	tableName string
}

var _ store.HistoryStore = (*Store)(nil)

// New opens the database file and creates the table if needed.
func New(ctx context.Context, opts Options) (*Store, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "chat_messages"
	}

	s := &Store{db: db, tableName: tableName}
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// InitSchema creates the message table and its session index.
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// History implements store.HistoryStore.
func (s *Store) History(sessionID string) schema.ChatMessageHistory {
	return &History{store: s, sessionID: sessionID}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// History is the chat history of one session.
type History struct {
	store     *Store
	sessionID string
}

var _ schema.ChatMessageHistory = (*History)(nil)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (h *History) insert(ctx context.Context, db execer, message llms.ChatMessage) error {
	data, err := memory.MarshalMessage(message)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("INSERT INTO %s (session_id, message) VALUES (?, ?)", h.store.tableName)
	if _, err := db.ExecContext(ctx, query, h.sessionID, string(data)); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (h *History) AddMessage(ctx context.Context, message llms.ChatMessage) error {
	return h.insert(ctx, h.store.db, message)
}

func (h *History) AddUserMessage(ctx context.Context, text string) error {
	return h.AddMessage(ctx, llms.HumanChatMessage{Content: text})
}

func (h *History) AddAIMessage(ctx context.Context, text string) error {
	return h.AddMessage(ctx, llms.AIChatMessage{Content: text})
}

func (h *History) Clear(ctx context.Context) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE session_id = ?", h.store.tableName)
	if _, err := h.store.db.ExecContext(ctx, query, h.sessionID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (h *History) Messages(ctx context.Context) ([]llms.ChatMessage, error) {
	query := fmt.Sprintf("SELECT message FROM %s WHERE session_id = ? ORDER BY id", h.store.tableName)
	rows, err := h.store.db.QueryContext(ctx, query, h.sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var msgs []llms.ChatMessage
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg, err := memory.UnmarshalMessage([]byte(data))
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// SetMessages replaces the history in one transaction.
func (h *History) SetMessages(ctx context.Context, messages []llms.ChatMessage) error {
	tx, err := h.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf("DELETE FROM %s WHERE session_id = ?", h.store.tableName)
	if _, err := tx.ExecContext(ctx, query, h.sessionID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	for _, m := range messages {
		if err := h.insert(ctx, tx, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}
