// Package completion performs single round-trips to a chat-completion service.
package completion

import "context"

// DefaultModel is the model used when none is configured.
const DefaultModel = "gpt-3.5-turbo"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of a chat prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Client sends messages and returns the first generated message's text, or ""
// when the service produced no content. Failures are AppErrors with the
// authentication, transport or service code.
type Client interface {
	Complete(ctx context.Context, credential string, messages []Message) (string, error)
}

// ClientFunc adapts an ordinary function to the Client interface.
type ClientFunc func(ctx context.Context, credential string, messages []Message) (string, error)

func (f ClientFunc) Complete(ctx context.Context, credential string, messages []Message) (string, error) {
	return f(ctx, credential, messages)
}
