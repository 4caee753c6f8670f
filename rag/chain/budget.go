package chain

import (
	"unicode/utf8"

	"github.com/smallnest/docchat/memory"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// DefaultMaxTokens caps a rendered prompt.
const DefaultMaxTokens = 4000

// TokenCounter measures text in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// ApproxCounter estimates one token per four runes, rounding up.
type ApproxCounter struct{}

func (ApproxCounter) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

// TiktokenCounter counts with the tiktoken encoding of Model. Encodings may
// be downloaded on first use; langchaingo falls back to an estimate when that fails.
type TiktokenCounter struct {
	Model string
}

func (c TiktokenCounter) Count(text string) int {
	return llms.CountTokens(c.Model, text)
}

// Budget trims prompt material to a token limit.
type Budget struct {
	MaxTokens int
	Counter   TokenCounter
}

// Fit drops the oldest history turns first and then the lowest ranked
// (trailing) documents until fixed, history and documents fit MaxTokens.
// Callers pass the prompt rendered without history and documents as fixed,
// so template text counts against the limit. Turns are counted as rendered
// in the prompt. fixed is never trimmed. Inputs are not modified.
func (b Budget) Fit(fixed string, history []memory.Turn, docs []schema.Document) ([]memory.Turn, []schema.Document) {
	if b.MaxTokens <= 0 {
		return history, docs
	}
	counter := b.Counter
	if counter == nil {
		counter = ApproxCounter{}
	}

	turnCost := func(t memory.Turn) int { return counter.Count(renderHistory([]memory.Turn{t}) + "\n") }
	docCost := func(d schema.Document) int { return counter.Count(d.PageContent + "\n\n") }

	total := counter.Count(fixed)
	for _, t := range history {
		total += turnCost(t)
	}
	for _, d := range docs {
		total += docCost(d)
	}

	for total > b.MaxTokens && len(history) > 0 {
		total -= turnCost(history[0])
		history = history[1:]
	}
	for total > b.MaxTokens && len(docs) > 0 {
		total -= docCost(docs[len(docs)-1])
		docs = docs[:len(docs)-1]
	}
	return history, docs
}
