package ai

import "context"

// Message is one turn of a provider conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider is the language-model collaborator. Implementations are plain
// HTTP clients; failures and timeouts are returned as errors and never
// retried internally (see Retrying).
type Provider interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Retrying wraps a provider with a single retry. The collaborator contract
// is retryable-once, then the failure surfaces to the caller.
type Retrying struct {
	Inner Provider
}

func (r Retrying) Chat(ctx context.Context, messages []Message) (string, error) {
	reply, err := r.Inner.Chat(ctx, messages)
	if err == nil {
		return reply, nil
	}
	if ctx.Err() != nil {
		return "", err
	}
	return r.Inner.Chat(ctx, messages)
}
