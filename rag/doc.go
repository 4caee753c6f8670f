// Package rag assembles a document chat pipeline from uploaded files.
//
// ConfigureRetrievalChain is the entry point. It loads the files, splits
// them into overlapping chunks, embeds the chunks into an in-memory index
// and returns a chains.Chain that answers questions about them:
//
//	c, err := rag.ConfigureRetrievalChain(ctx, []rag.UploadedFile{
//		{Name: "notes.txt", Content: []byte("The sky is blue.")},
//	}, rag.Dependencies{LLM: llm, Embedder: embedder}, rag.Options{})
//	if err != nil {
//		return err
//	}
//	out, err := chains.Call(ctx, c, map[string]any{
//		"question":     "What color is the sky?",
//		"chat_history": nil,
//	})
//
// Three switches shape the pipeline. Compression filters retrieved chunks
// by similarity to the query. ForwardLooking answers with FLARE, which
// retrieves again whenever the model is unsure of what it is writing.
// Moderation checks the answer against a content policy.
//
// The subpackages can be used on their own: loader reads files, splitter
// chunks documents, store holds the vector index, retriever implements MMR
// search and compression, and chain builds the answering chains.
package rag
