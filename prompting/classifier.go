// Package prompting runs zero-shot prompts against a chat model.
package prompting

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/smallnest/docchat/log"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

// SentimentTemplate is the default classification prompt.
const SentimentTemplate = "Classify the sentiment of this text: {{.text}}"

// ErrUnknownLabel is returned when the model answer matches none of the labels.
var ErrUnknownLabel = errors.New("answer matches no label")

// Classifier pipes a prompt template into a model.
type Classifier struct {
	chain    *chains.LLMChain
	labels   []string
	callOpts []chains.ChainCallOption
}

// Option configures a Classifier.
type Option func(*classifierConfig)

type classifierConfig struct {
	template string
	labels   []string
	callOpts []chains.ChainCallOption
}

// WithTemplate replaces SentimentTemplate. The template receives {{.text}}.
func WithTemplate(tmpl string) Option {
	return func(c *classifierConfig) { c.template = tmpl }
}

// WithLabels restricts answers to labels. The model output is mapped to the
// first label it mentions, ignoring case.
func WithLabels(labels ...string) Option {
	return func(c *classifierConfig) { c.labels = labels }
}

// WithCallOptions sets options for every model call.
func WithCallOptions(opts ...chains.ChainCallOption) Option {
	return func(c *classifierConfig) { c.callOpts = opts }
}

// NewClassifier creates a zero-shot classifier.
func NewClassifier(llm llms.Model, opts ...Option) *Classifier {
	cfg := &classifierConfig{template: SentimentTemplate}
	for _, opt := range opts {
		opt(cfg)
	}
	tmpl := cfg.template
	if len(cfg.labels) > 0 {
		tmpl += "\nAnswer with exactly one of: " + strings.Join(cfg.labels, ", ") + "."
	}
	c := chains.NewLLMChain(llm, prompts.NewPromptTemplate(tmpl, []string{"text"}))
	return &Classifier{chain: c, labels: cfg.labels, callOpts: cfg.callOpts}
}

// Classify returns the model's classification of text.
func (c *Classifier) Classify(ctx context.Context, text string) (string, error) {
	out, err := chains.Predict(ctx, c.chain, map[string]any{"text": text}, c.callOpts...)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	out = strings.TrimSpace(out)
	if len(c.labels) == 0 {
		return out, nil
	}
	label, ok := matchLabel(out, c.labels)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, out)
	}
	log.Debug("classified %q as %s", text, label)
	return label, nil
}

// matchLabel prefers an exact match and otherwise the label mentioned first.
func matchLabel(answer string, labels []string) (string, bool) {
	lower := strings.ToLower(strings.Trim(answer, " .!\"'\n"))
	if i := slices.IndexFunc(labels, func(l string) bool { return strings.ToLower(l) == lower }); i >= 0 {
		return labels[i], true
	}
	best, bestAt := "", -1
	for _, l := range labels {
		at := strings.Index(lower, strings.ToLower(l))
		if at >= 0 && (bestAt < 0 || at < bestAt) {
			best, bestAt = l, at
		}
	}
	return best, bestAt >= 0
}
