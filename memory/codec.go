package memory

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// ErrUnsupportedMessage is returned for message types the codec cannot store.
var ErrUnsupportedMessage = errors.New("unsupported chat message type")

type storedMessage struct {
	Type    llms.ChatMessageType `json:"type"`
	Content string               `json:"content"`
	Role    string               `json:"role,omitempty"`
	Name    string               `json:"name,omitempty"`
}

// MarshalMessage encodes human, AI, system and generic messages as JSON.
func MarshalMessage(m llms.ChatMessage) ([]byte, error) {
	sm := storedMessage{Type: m.GetType(), Content: m.GetContent()}
	switch msg := m.(type) {
	case llms.HumanChatMessage, llms.AIChatMessage, llms.SystemChatMessage:
	case llms.GenericChatMessage:
		sm.Role = msg.Role
		sm.Name = msg.Name
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMessage, m.GetType())
	}
	return json.Marshal(sm)
}

// UnmarshalMessage decodes a message written by MarshalMessage.
func UnmarshalMessage(data []byte) (llms.ChatMessage, error) {
	var sm storedMessage
	if err := json.Unmarshal(data, &sm); err != nil {
		return nil, fmt.Errorf("decode chat message: %w", err)
	}
	switch sm.Type {
	case llms.ChatMessageTypeHuman:
		return llms.HumanChatMessage{Content: sm.Content}, nil
	case llms.ChatMessageTypeAI:
		return llms.AIChatMessage{Content: sm.Content}, nil
	case llms.ChatMessageTypeSystem:
		return llms.SystemChatMessage{Content: sm.Content}, nil
	case llms.ChatMessageTypeGeneric:
		return llms.GenericChatMessage{Content: sm.Content, Role: sm.Role, Name: sm.Name}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedMessage, sm.Type)
}
