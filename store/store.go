package store

import (
	"io"

	"github.com/tmc/langchaingo/schema"
)

// HistoryStore hands out durable chat histories keyed by session ID.
type HistoryStore interface {
	io.Closer
	// History returns the history of one session. Histories of different
	// sessions never share messages.
	History(sessionID string) schema.ChatMessageHistory
}
