package rove

import (
	"errors"

	"github.com/tmc/langchaingo/llms"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ErrSystemNotFirst is returned when appending a system message to a history
// that already contains messages. A history may hold at most one system
// message, and it must be the first message.
var ErrSystemNotFirst = errors.New("rove: system message must be the single first message")

// Message is one turn of conversation. Messages are value types and are
// never mutated after creation; History hands out copies.
type Message struct {
	Role     Role
	Content  string
	Metadata map[string]string
}

// NewMessage creates a Message with the given role and content.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// History is the ordered transcript of one agent run. It is append-only:
// messages are never reordered, truncated, or mutated in place. A History is
// exclusively owned by a single in-flight run and is not safe for concurrent
// use.
type History struct {
	messages []Message
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{messages: make([]Message, 0, 8)}
}

// NewHistoryWithSystem creates a History seeded with a system prompt.
func NewHistoryWithSystem(prompt string) *History {
	h := NewHistory()
	h.messages = append(h.messages, Message{Role: RoleSystem, Content: prompt})
	return h
}

// Append adds a message to the end of the history.
//
// Appending a system message is only valid when the history is empty; any
// other placement returns [ErrSystemNotFirst] and leaves the history
// unchanged.
func (h *History) Append(msg Message) error {
	if msg.Role == RoleSystem && len(h.messages) > 0 {
		return ErrSystemNotFirst
	}
	h.messages = append(h.messages, msg)
	return nil
}

// Len returns the number of messages in the history.
func (h *History) Len() int {
	return len(h.messages)
}

// Messages returns a copy of the messages in chronological order.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// At returns the message at index i. Panics if i is out of range, mirroring
// slice semantics.
func (h *History) At(i int) Message {
	return h.messages[i]
}

// LastAssistant returns the most recent assistant message, if any.
func (h *History) LastAssistant() (Message, bool) {
	for i := len(h.messages) - 1; i >= 0; i-- {
		if h.messages[i].Role == RoleAssistant {
			return h.messages[i], true
		}
	}
	return Message{}, false
}

// Clone returns a deep copy of the history. The clone shares no state with
// the original, so a conversational agent can snapshot its transcript into a
// Result without aliasing.
func (h *History) Clone() *History {
	clone := &History{messages: make([]Message, len(h.messages))}
	copy(clone.messages, h.messages)
	return clone
}

// Render converts the history into the provider-native payload. Tool
// observations are rendered as ToolCallResponse parts; everything else is
// plain text.
func (h *History) Render() []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(h.messages))
	for _, msg := range h.messages {
		out = append(out, llms.MessageContent{
			Role:  chatMessageType(msg.Role),
			Parts: []llms.ContentPart{renderPart(msg)},
		})
	}
	return out
}

func chatMessageType(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	case RoleTool:
		return llms.ChatMessageTypeTool
	default:
		return llms.ChatMessageTypeHuman
	}
}

func renderPart(msg Message) llms.ContentPart {
	if msg.Role == RoleTool {
		return llms.ToolCallResponse{
			Name:    msg.Metadata["tool"],
			Content: msg.Content,
		}
	}
	return llms.TextContent{Text: msg.Content}
}
