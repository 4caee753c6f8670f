package retriever

import (
	"context"
	"errors"
	"strings"

	"github.com/tmc/langchaingo/schema"
)

// mapEmbedder returns fixed vectors per text and counts keyword hits otherwise.
type mapEmbedder struct {
	vectors map[string][]float32
	vocab   []string
	err     error
	batches int
}

func (m *mapEmbedder) embed(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	lower := strings.ToLower(text)
	vec := make([]float32, len(m.vocab))
	for i, w := range m.vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	return vec
}

func (m *mapEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	m.batches++
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.embed(t)
	}
	return out, nil
}

func (m *mapEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.embed(text), nil
}

type staticRetriever struct {
	docs []schema.Document
	err  error
}

func (m *staticRetriever) GetRelevantDocuments(context.Context, string) ([]schema.Document, error) {
	return m.docs, m.err
}

var errService = errors.New("service unavailable")

func contents(docs []schema.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.PageContent
	}
	return out
}
