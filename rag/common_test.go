package rag

import (
	"context"
	"errors"
	"strings"
)

var vocab = []string{"sky", "blue", "grass", "green", "sun"}

// keywordEmbedder embeds text as keyword counts over vocab.
type keywordEmbedder struct {
	err   error
	calls int
}

func (e *keywordEmbedder) embed(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocab)+1)
	for i, w := range vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	// Constant component keeps every vector non-zero.
	vec[len(vocab)] = 0.1
	return vec
}

func (e *keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.embed(text), nil
}

var errService = errors.New("embedding service unavailable")
