package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smallnest/docchat/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func newStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := New(Options{Addr: mr.Addr(), TTL: ttl})
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, 0)

	h := s.History("session-1")
	require.NoError(t, h.AddUserMessage(ctx, "What color is the sky?"))
	require.NoError(t, h.AddAIMessage(ctx, "Blue."))

	msgs, err := h.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[0].GetType())
	assert.Equal(t, "Blue.", msgs[1].GetContent())

	assert.True(t, mr.Exists("docchat:history:session-1"))
	assert.Equal(t, time.Duration(0), mr.TTL("docchat:history:session-1"))

	other, err := s.History("session-2").Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, h.Clear(ctx))
	msgs, err = h.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHistory_SetMessages(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, time.Hour)

	h := s.History("s")
	require.NoError(t, h.AddUserMessage(ctx, "old"))
	require.NoError(t, h.SetMessages(ctx, []llms.ChatMessage{
		llms.SystemChatMessage{Content: "rules"},
		llms.HumanChatMessage{Content: "new"},
	}))

	msgs, err := h.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "rules", msgs[0].GetContent())
	assert.Equal(t, time.Hour, mr.TTL("docchat:history:s"))

	require.NoError(t, h.SetMessages(ctx, nil))
	assert.False(t, mr.Exists("docchat:history:s"))

	err = h.SetMessages(ctx, []llms.ChatMessage{llms.ToolChatMessage{ID: "x"}})
	assert.ErrorIs(t, err, memory.ErrUnsupportedMessage)
}

func TestHistory_TTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newStore(t, time.Minute)

	h := s.History("ttl")
	require.NoError(t, h.AddUserMessage(ctx, "hi"))
	assert.Equal(t, time.Minute, mr.TTL("docchat:history:ttl"))

	mr.FastForward(2 * time.Minute)
	msgs, err := h.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestHistory_WithSession(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t, 0)

	session := memory.NewSession("question", "answer", memory.WithID("abc"), memory.WithHistory(s.History("abc")))
	require.NoError(t, session.Memory().SaveContext(ctx,
		map[string]any{"question": "q"}, map[string]any{"answer": "a"}))

	turns, err := memory.NewSession("question", "answer", memory.WithHistory(s.History("abc"))).Turns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []memory.Turn{{Human: "q", AI: "a"}}, turns)
}

func TestHistory_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	s := New(Options{Addr: mr.Addr()})
	mr.Close()

	_, err := s.History("x").Messages(context.Background())
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}
