package chain

import (
	"testing"

	"github.com/smallnest/docchat/memory"
	"github.com/stretchr/testify/assert"
)

func TestStrategyKeys(t *testing.T) {
	assert.Equal(t, "answer", Standard.OutputKey())
	assert.Equal(t, "question", Standard.QuestionKey())
	assert.Equal(t, []string{memory.HistoryKey, "question"}, Standard.InputKeys())

	assert.Equal(t, "response", ForwardLooking.OutputKey())
	assert.Equal(t, "user_input", ForwardLooking.QuestionKey())
	assert.Equal(t, []string{"user_input"}, ForwardLooking.InputKeys())
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, Standard, StrategyFor(false))
	assert.Equal(t, ForwardLooking, StrategyFor(true))
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "standard", Standard.String())
	assert.Equal(t, "forward-looking", ForwardLooking.String())
	assert.Equal(t, "Strategy(7)", Strategy(7).String())
}

func TestNewSessionUsesStrategyKeys(t *testing.T) {
	s := NewSession(ForwardLooking, memory.WithID("abc"))
	assert.Equal(t, "abc", s.ID())
	assert.Equal(t, "user_input", s.InputKey())
	assert.Equal(t, "response", s.OutputKey())
}
