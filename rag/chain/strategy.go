package chain

import (
	"fmt"

	"github.com/smallnest/docchat/memory"
)

// Strategy selects how a chain answers questions.
type Strategy int

const (
	// Standard condenses the question, retrieves once and answers.
	Standard Strategy = iota
	// ForwardLooking generates the answer piece by piece and retrieves again
	// whenever the model is unsure of a span (FLARE).
	ForwardLooking
)

// StrategyFor maps the forward-looking flag to a Strategy.
func StrategyFor(forwardLooking bool) Strategy {
	if forwardLooking {
		return ForwardLooking
	}
	return Standard
}

// OutputKey is the output field holding the answer text.
func (s Strategy) OutputKey() string {
	if s == ForwardLooking {
		return "response"
	}
	return "answer"
}

// QuestionKey is the input field holding the user's message.
func (s Strategy) QuestionKey() string {
	if s == ForwardLooking {
		return "user_input"
	}
	return "question"
}

// InputKeys are the input fields a chain of this strategy declares.
func (s Strategy) InputKeys() []string {
	if s == ForwardLooking {
		return []string{"user_input"}
	}
	return []string{memory.HistoryKey, "question"}
}

func (s Strategy) String() string {
	switch s {
	case Standard:
		return "standard"
	case ForwardLooking:
		return "forward-looking"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// NewSession creates a session whose memory keys match the strategy.
func NewSession(s Strategy, opts ...memory.Option) *memory.Session {
	return memory.NewSession(s.QuestionKey(), s.OutputKey(), opts...)
}
