package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	lcmemory "github.com/tmc/langchaingo/memory"
	"github.com/tmc/langchaingo/schema"
)

// HistoryKey is the memory variable holding prior messages.
const HistoryKey = "chat_history"

// Session is the conversation state of one user.
type Session struct {
	id        string
	history   schema.ChatMessageHistory
	inputKey  string
	outputKey string
	buffer    *lcmemory.ConversationBuffer
}

// Option configures a Session.
type Option func(*Session)

// WithID sets the session ID instead of a random UUID.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithHistory sets the backing history.
func WithHistory(history schema.ChatMessageHistory) Option {
	return func(s *Session) { s.history = history }
}

// NewSession creates a session that records the value under inputKey as the
// human turn and the value under outputKey as the AI turn.
func NewSession(inputKey, outputKey string, opts ...Option) *Session {
	s := &Session{
		inputKey:  inputKey,
		outputKey: outputKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.history == nil {
		s.history = lcmemory.NewChatMessageHistory()
	}
	s.buffer = lcmemory.NewConversationBuffer(
		lcmemory.WithChatHistory(s.history),
		lcmemory.WithReturnMessages(true),
		lcmemory.WithMemoryKey(HistoryKey),
		lcmemory.WithInputKey(inputKey),
		lcmemory.WithOutputKey(outputKey),
	)
	return s
}

func (s *Session) ID() string        { return s.id }
func (s *Session) InputKey() string  { return s.inputKey }
func (s *Session) OutputKey() string { return s.outputKey }

// History returns the backing chat history.
func (s *Session) History() schema.ChatMessageHistory { return s.history }

// Memory returns the langchaingo memory bound to this session.
func (s *Session) Memory() schema.Memory { return s.buffer }

// Turns returns the history as question/answer pairs.
func (s *Session) Turns(ctx context.Context) ([]Turn, error) {
	msgs, err := s.history.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", s.id, err)
	}
	return PairTurns(msgs), nil
}

// Reset clears the history.
func (s *Session) Reset(ctx context.Context) error {
	return s.history.Clear(ctx)
}

// Turn is one human message and the AI reply that followed it. Either side
// may be empty when the history is not strictly alternating.
type Turn struct {
	Human string
	AI    string
}

// PairTurns groups messages into turns. A human message opens a new turn;
// an AI message completes the open turn or forms a turn of its own. Other
// message types are ignored.
func PairTurns(msgs []llms.ChatMessage) []Turn {
	var turns []Turn
	open := false
	for _, m := range msgs {
		switch m.GetType() {
		case llms.ChatMessageTypeHuman:
			turns = append(turns, Turn{Human: m.GetContent()})
			open = true
		case llms.ChatMessageTypeAI:
			if open {
				turns[len(turns)-1].AI = m.GetContent()
			} else {
				turns = append(turns, Turn{AI: m.GetContent()})
			}
			open = false
		}
	}
	return turns
}

// Messages flattens turns back into alternating human and AI messages.
func Messages(turns []Turn) []llms.ChatMessage {
	msgs := make([]llms.ChatMessage, 0, 2*len(turns))
	for _, t := range turns {
		if t.Human != "" {
			msgs = append(msgs, llms.HumanChatMessage{Content: t.Human})
		}
		if t.AI != "" {
			msgs = append(msgs, llms.AIChatMessage{Content: t.AI})
		}
	}
	return msgs
}
