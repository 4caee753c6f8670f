// Package docchat is a chat-with-your-documents toolkit built on langchaingo.
//
// Upload a few files, and rag.ConfigureRetrievalChain returns a chain that
// answers questions about them while remembering the conversation:
//
//	c, err := rag.ConfigureRetrievalChain(ctx, files, rag.Dependencies{
//		LLM:      llm,
//		Embedder: embedder,
//	}, rag.Options{Compression: true})
//	if err != nil {
//		return err
//	}
//	out, err := chains.Call(ctx, c, map[string]any{
//		"question":     "What color is the sky?",
//		"chat_history": nil,
//	})
//
// # Packages
//
//   - rag: the pipeline entry points and its building blocks (loader,
//     splitter, store, retriever, chain)
//   - moderation: content policy checks and the moderation chain stage
//   - memory: per-session conversation memory
//   - store: durable chat histories in Redis, SQLite or Postgres
//   - evaluation: model graded agent trajectories
//   - prompting: zero-shot classification
//   - config: YAML and environment configuration
//   - log: leveled logging backed by golog
//
// Runnable programs live under examples/.
package docchat
