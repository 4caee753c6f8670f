package chain

import (
	"errors"
	"fmt"

	"github.com/smallnest/docchat/log"
	"github.com/smallnest/docchat/memory"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

var (
	// ErrStrategyMismatch means the session memory was built for another strategy.
	ErrStrategyMismatch = errors.New("session keys do not match strategy")
	// ErrNilDependency means Configure was given a nil model, retriever or session.
	ErrNilDependency = errors.New("nil dependency")
)

type config struct {
	budget        Budget
	returnSources bool
	generator     TokenGenerator
	flare         func(*Flare)
}

// Option configures Configure.
type Option func(*config)

// WithMaxTokens sets the prompt token budget. Zero or less disables trimming.
func WithMaxTokens(n int) Option {
	return func(c *config) { c.budget.MaxTokens = n }
}

// WithTokenCounter sets how the budget counts tokens.
func WithTokenCounter(counter TokenCounter) Option {
	return func(c *config) { c.budget.Counter = counter }
}

// WithReturnSourceDocuments adds source_documents to Standard outputs.
func WithReturnSourceDocuments(enabled bool) Option {
	return func(c *config) { c.returnSources = enabled }
}

// WithTokenGenerator sets the generator a ForwardLooking chain reads log
// probabilities from.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(c *config) { c.generator = g }
}

// WithFlareSettings adjusts a ForwardLooking chain after construction.
func WithFlareSettings(fn func(*Flare)) Option {
	return func(c *config) { c.flare = fn }
}

// Configure builds the answering chain for strategy. The chain reads and
// writes conversation turns through session.
func Configure(llm llms.Model, retriever schema.Retriever, session *memory.Session, strategy Strategy, opts ...Option) (chains.Chain, error) {
	if llm == nil || retriever == nil || session == nil {
		return nil, ErrNilDependency
	}
	if session.OutputKey() != strategy.OutputKey() || session.InputKey() != strategy.QuestionKey() {
		return nil, fmt.Errorf("%w: session uses %q/%q, %s needs %q/%q", ErrStrategyMismatch,
			session.InputKey(), session.OutputKey(), strategy, strategy.QuestionKey(), strategy.OutputKey())
	}

	cfg := &config{budget: Budget{MaxTokens: DefaultMaxTokens, Counter: ApproxCounter{}}}
	for _, opt := range opts {
		opt(cfg)
	}

	switch strategy {
	case Standard:
		return NewConversationalRetrieval(llm, retriever, session.Memory(), cfg.budget, cfg.returnSources), nil
	case ForwardLooking:
		generator := cfg.generator
		if generator == nil {
			log.Warn("no log probability generator configured, forward-looking chain will not re-retrieve")
			generator = ModelGenerator{LLM: llm}
		}
		f := NewFlare(llm, generator, retriever, session.Memory(), cfg.budget)
		if cfg.flare != nil {
			cfg.flare(f)
		}
		return f, nil
	}
	return nil, fmt.Errorf("unknown strategy %s", strategy)
}
