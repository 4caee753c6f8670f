package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/docchat/memory"
	"github.com/smallnest/docchat/store"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "docchat:"
	TTL      time.Duration // Expiration of idle histories, 0 keeps them forever
}

// Store keeps one Redis list per session.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ store.HistoryStore = (*Store)(nil)

// New connects to Redis. The connection is established lazily.
func New(opts Options) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return NewWithClient(client, opts.Prefix, opts.TTL)
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = "docchat:"
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

// History implements store.HistoryStore.
func (s *Store) History(sessionID string) schema.ChatMessageHistory {
	return &History{store: s, key: fmt.Sprintf("%shistory:%s", s.prefix, sessionID)}
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// History is the chat history of one session.
type History struct {
	store *Store
	key   string
}

var _ schema.ChatMessageHistory = (*History)(nil)

// AddMessage appends a message and refreshes the TTL.
func (h *History) AddMessage(ctx context.Context, message llms.ChatMessage) error {
	data, err := memory.MarshalMessage(message)
	if err != nil {
		return err
	}

	pipe := h.store.client.TxPipeline()
	pipe.RPush(ctx, h.key, data)
	if h.store.ttl > 0 {
		pipe.Expire(ctx, h.key, h.store.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append message to redis: %w", err)
	}
	return nil
}

func (h *History) AddUserMessage(ctx context.Context, text string) error {
	return h.AddMessage(ctx, llms.HumanChatMessage{Content: text})
}

func (h *History) AddAIMessage(ctx context.Context, text string) error {
	return h.AddMessage(ctx, llms.AIChatMessage{Content: text})
}

// Clear deletes the session's list.
func (h *History) Clear(ctx context.Context) error {
	if err := h.store.client.Del(ctx, h.key).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Messages returns every message in insertion order.
func (h *History) Messages(ctx context.Context) ([]llms.ChatMessage, error) {
	raw, err := h.store.client.LRange(ctx, h.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load history from redis: %w", err)
	}

	msgs := make([]llms.ChatMessage, 0, len(raw))
	for _, item := range raw {
		msg, err := memory.UnmarshalMessage([]byte(item))
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// SetMessages atomically replaces the history.
func (h *History) SetMessages(ctx context.Context, messages []llms.ChatMessage) error {
	values := make([]any, 0, len(messages))
	for _, m := range messages {
		data, err := memory.MarshalMessage(m)
		if err != nil {
			return err
		}
		values = append(values, data)
	}

	pipe := h.store.client.TxPipeline()
	pipe.Del(ctx, h.key)
	if len(values) > 0 {
		pipe.RPush(ctx, h.key, values...)
		if h.store.ttl > 0 {
			pipe.Expire(ctx, h.key, h.store.ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}
