package store

import (
	"context"
	"errors"
	"strings"
)

// keywordEmbedder embeds text as counts of each vocabulary word.
type keywordEmbedder struct {
	vocab []string
	calls int
	err   error
}

func (m *keywordEmbedder) embed(text string) []float32 {
	text = strings.ToLower(text)
	vec := make([]float32, len(m.vocab))
	for i, w := range m.vocab {
		vec[i] = float32(strings.Count(text, w))
	}
	return vec
}

func (m *keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.embed(t)
	}
	return out, nil
}

func (m *keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.embed(text), nil
}

var errEmbedding = errors.New("embedding service unavailable")
