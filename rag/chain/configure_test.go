package chain

import (
	"testing"

	"github.com/smallnest/docchat/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_StrategyTypes(t *testing.T) {
	llm := &scriptedModel{}
	ret := &recordingRetriever{}

	c, err := Configure(llm, ret, NewSession(Standard), Standard)
	require.NoError(t, err)
	assert.IsType(t, &ConversationalRetrieval{}, c)
	assert.Equal(t, []string{memory.HistoryKey, "question"}, c.GetInputKeys())
	assert.Equal(t, []string{"answer"}, c.GetOutputKeys())

	c, err = Configure(llm, ret, NewSession(ForwardLooking), ForwardLooking)
	require.NoError(t, err)
	f, ok := c.(*Flare)
	require.True(t, ok)
	assert.IsType(t, ModelGenerator{}, f.generator)
	assert.Equal(t, DefaultMaxTokens, f.budget.MaxTokens)
}

func TestConfigure_SessionMustMatchStrategy(t *testing.T) {
	llm := &scriptedModel{}
	ret := &recordingRetriever{}

	_, err := Configure(llm, ret, NewSession(Standard), ForwardLooking)
	assert.ErrorIs(t, err, ErrStrategyMismatch)

	_, err = Configure(llm, ret, memory.NewSession("question", "response"), Standard)
	assert.ErrorIs(t, err, ErrStrategyMismatch)
}

func TestConfigure_NilDependencies(t *testing.T) {
	s := NewSession(Standard)
	_, err := Configure(nil, &recordingRetriever{}, s, Standard)
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = Configure(&scriptedModel{}, nil, s, Standard)
	assert.ErrorIs(t, err, ErrNilDependency)
	_, err = Configure(&scriptedModel{}, &recordingRetriever{}, nil, Standard)
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestConfigure_Options(t *testing.T) {
	gen := &scriptedGenerator{}
	c, err := Configure(&scriptedModel{}, &recordingRetriever{}, NewSession(ForwardLooking), ForwardLooking,
		WithTokenGenerator(gen),
		WithMaxTokens(100),
		WithTokenCounter(wordCounter{}),
		WithFlareSettings(func(f *Flare) { f.MinProb = 0.5 }))
	require.NoError(t, err)

	f := c.(*Flare)
	assert.Same(t, gen, f.generator)
	assert.Equal(t, Budget{MaxTokens: 100, Counter: wordCounter{}}, f.budget)
	assert.Equal(t, 0.5, f.MinProb)
}
