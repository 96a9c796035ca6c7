package ai

import "context"

// Role of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

// Request is the bounded parameter set a completion call may carry.
type Request struct {
	Messages    []Message
	Model       string
	Temperature float64
	MaxTokens   int
	// JSON forces the provider's structured (JSON object) response mode.
	JSON bool
}

// Client is the chat-completion capability the pipeline depends on.
// Any provider that can answer a list of messages with text satisfies it.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ClientFunc adapts a plain function to Client.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) { return f(ctx, req) }
