// Package store defines durable chat-history backends for docchat sessions.
//
// Each subpackage implements HistoryStore over one database:
//   - redis: a list per session, with optional TTL
//   - sqlite: a chat_messages table in a local file
//   - postgres: a chat_messages table reached through a pgx pool
//
// Messages are stored in the JSON form produced by memory.MarshalMessage.
// A history is handed to a session with memory.WithHistory:
//
//	hs := redis.New(redis.Options{Addr: "localhost:6379", TTL: 24 * time.Hour})
//	defer hs.Close()
//	session := memory.NewSession("question", "answer",
//		memory.WithID(id), memory.WithHistory(hs.History(id)))
package store
