package chain

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// scriptedModel answers every prompt with reply and records what it was asked.
type scriptedModel struct {
	mu      sync.Mutex
	reply   func(prompt string) string
	err     error
	prompts []string
	options []llms.CallOptions
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	var prompt strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt.WriteString(text.Text)
			}
		}
	}

	m.mu.Lock()
	m.prompts = append(m.prompts, prompt.String())
	m.options = append(m.options, opts)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	out := m.reply(prompt.String())
	if opts.StreamingFunc != nil {
		if err := opts.StreamingFunc(ctx, []byte(out)); err != nil {
			return nil, err
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: out}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// replyByPrefix picks the reply of the first prompt prefix that matches.
func replyByPrefix(pairs ...string) func(string) string {
	return func(prompt string) string {
		for i := 0; i+1 < len(pairs); i += 2 {
			if strings.HasPrefix(prompt, pairs[i]) {
				return pairs[i+1]
			}
		}
		return ""
	}
}

// recordingRetriever returns docs for every query and records the queries.
type recordingRetriever struct {
	docs    []schema.Document
	err     error
	queries []string
}

func (r *recordingRetriever) GetRelevantDocuments(_ context.Context, query string) ([]schema.Document, error) {
	r.queries = append(r.queries, query)
	return r.docs, r.err
}

// scriptedGenerator returns the next batch of tokens on every call.
type scriptedGenerator struct {
	batches [][]Token
	prompts []string
	options []llms.CallOptions
}

func (g *scriptedGenerator) GenerateTokens(_ context.Context, prompt string, options ...llms.CallOption) ([]Token, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	g.prompts = append(g.prompts, prompt)
	g.options = append(g.options, opts)
	if len(g.batches) == 0 {
		return nil, errExhausted
	}
	next := g.batches[0]
	if len(g.batches) > 1 {
		g.batches = g.batches[1:]
	}
	return next, nil
}

var (
	errExhausted = errors.New("generator exhausted")
	errService   = errors.New("service unavailable")
)

func confident(texts ...string) []Token {
	out := make([]Token, len(texts))
	for i, t := range texts {
		out[i] = Token{Text: t}
	}
	return out
}
