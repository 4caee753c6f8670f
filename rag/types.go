package rag

import (
	"github.com/smallnest/docchat/memory"
	"github.com/smallnest/docchat/moderation"
	"github.com/smallnest/docchat/rag/chain"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
)

// UploadedFile is a file handed to the pipeline. Only the base of Name is
// used, and its extension selects the loader.
type UploadedFile struct {
	Name    string
	Content []byte
}

// Options are the three pipeline switches plus optional tuning.
type Options struct {
	// Compression filters retrieved chunks by embedding similarity to the query.
	Compression bool
	// ForwardLooking selects the FLARE strategy instead of standard retrieval QA.
	ForwardLooking bool
	// Moderation appends a content policy check on the answer.
	Moderation bool

	RetrieverOptions []RetrieverOption
	ChainOptions     []chain.Option
	StageOptions     []moderation.StageOption
}

// Dependencies are the collaborators the pipeline calls out to.
type Dependencies struct {
	LLM      llms.Model
	Embedder embeddings.Embedder
	// Moderator is required when Options.Moderation is set.
	Moderator moderation.Moderator
	// Session holds the conversation. A fresh in-memory session is created
	// when nil; its keys must match the selected strategy otherwise.
	Session *memory.Session
	// TokenGenerator supplies log probabilities to the forward-looking strategy.
	TokenGenerator chain.TokenGenerator
}
