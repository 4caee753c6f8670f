package moderation

import (
	"context"
	"fmt"

	"github.com/smallnest/docchat/log"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/schema"
)

// OutputKey is the field a Stage writes the checked text to.
const OutputKey = "output"

// DefaultRefusal replaces flagged text when WithReplaceFlagged is set.
const DefaultRefusal = "Text was found that violates OpenAI's content policy."

// Stage is a chain step that checks the text under its input key.
//
// It passes every input value through and adds the checked text under
// OutputKey, so it can follow a chain inside a SequentialChain while the
// earlier outputs stay visible to the caller.
type Stage struct {
	moderator Moderator
	inputKey  string
	replace   bool
	refusal   string
}

var _ chains.Chain = (*Stage)(nil)

// StageOption configures a Stage.
type StageOption func(*Stage)

// WithReplaceFlagged makes a flagged text produce refusal instead of an
// error. An empty refusal uses DefaultRefusal.
func WithReplaceFlagged(refusal string) StageOption {
	return func(s *Stage) {
		s.replace = true
		if refusal != "" {
			s.refusal = refusal
		}
	}
}

// NewStage creates a stage reading the text under inputKey.
func NewStage(moderator Moderator, inputKey string, opts ...StageOption) *Stage {
	s := &Stage{moderator: moderator, inputKey: inputKey, refusal: DefaultRefusal}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stage) Call(ctx context.Context, values map[string]any, _ ...chains.ChainCallOption) (map[string]any, error) {
	text, ok := values[s.inputKey].(string)
	if !ok {
		return nil, fmt.Errorf("%w: %q must be a string", chains.ErrInputValuesWrongType, s.inputKey)
	}

	res, err := s.moderator.Check(ctx, text)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(values)+1)
	for k, v := range values {
		out[k] = v
	}
	out[OutputKey] = text
	if res.Flagged {
		log.Warn("moderation flagged %q output: %v", s.inputKey, res.Categories)
		if !s.replace {
			return nil, &FlaggedError{Categories: res.Categories}
		}
		out[OutputKey] = s.refusal
	}
	return out, nil
}

func (s *Stage) GetMemory() schema.Memory { return memory.NewSimple() }

func (s *Stage) GetInputKeys() []string { return []string{s.inputKey} }

func (s *Stage) GetOutputKeys() []string { return []string{OutputKey} }
