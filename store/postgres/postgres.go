package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/smallnest/docchat/memory"
	"github.com/smallnest/docchat/store"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// DBPool is the subset of pgxpool.Pool used by the store.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Options configures the Postgres connection.
type Options struct {
	ConnString string
	TableName  string // Default "chat_messages"
}

// Store keeps all session histories in one table.
type Store struct {
	pool      DBPool
	tableName string
}

var _ store.HistoryStore = (*Store)(nil)

// New creates a connection pool. Call InitSchema before first use on a fresh database.
func New(ctx context.Context, opts Options) (*Store, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return NewWithPool(pool, opts.TableName), nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool DBPool, tableName string) *Store {
	if tableName == "" {
		tableName = "chat_messages"
	}
	return &Store{pool: pool, tableName: tableName}
}

// InitSchema creates the message table and its session index.
func (s *Store) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			message JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// History implements store.HistoryStore.
func (s *Store) History(sessionID string) schema.ChatMessageHistory {
	return &History{store: s, sessionID: sessionID}
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// History is the chat history of one session.
type History struct {
	store     *Store
	sessionID string
}

var _ schema.ChatMessageHistory = (*History)(nil)

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func (h *History) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (session_id, message) VALUES ($1, $2)", h.store.tableName)
}

func (h *History) deleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE session_id = $1", h.store.tableName)
}

func (h *History) insert(ctx context.Context, db execer, message llms.ChatMessage) error {
	data, err := memory.MarshalMessage(message)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, h.insertSQL(), h.sessionID, string(data)); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (h *History) AddMessage(ctx context.Context, message llms.ChatMessage) error {
	return h.insert(ctx, h.store.pool, message)
}

func (h *History) AddUserMessage(ctx context.Context, text string) error {
	return h.AddMessage(ctx, llms.HumanChatMessage{Content: text})
}

func (h *History) AddAIMessage(ctx context.Context, text string) error {
	return h.AddMessage(ctx, llms.AIChatMessage{Content: text})
}

func (h *History) Clear(ctx context.Context) error {
	if _, err := h.store.pool.Exec(ctx, h.deleteSQL(), h.sessionID); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (h *History) Messages(ctx context.Context) ([]llms.ChatMessage, error) {
	query := fmt.Sprintf("SELECT message FROM %s WHERE session_id = $1 ORDER BY id", h.store.tableName)
	rows, err := h.store.pool.Query(ctx, query, h.sessionID)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return msgs, nil
}

// SetMessages replaces the history in one transaction.
func (h *History) SetMessages(ctx context.Context, messages []llms.ChatMessage) error {
	tx, err := h.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.Exec(ctx, h.deleteSQL(), h.sessionID); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("failed to clear history: %w", err)
	}
	for _, m := range messages {
		if err := h.insert(ctx, tx, m); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit history: %w", err)
	}
	return nil
}
