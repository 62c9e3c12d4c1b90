// Package chat generates answers from retrieved context. It defines a
// provider-agnostic chat Backend with OpenAI and Groq implementations plus a
// deterministic mock, a bounded conversation Memory, and the Generator that
// turns a question, context and history into a user-facing answer.
package chat

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrGenerationService = errors.New("generation service request failed")
	ErrInvalidConfig     = errors.New("invalid chat backend configuration")
)

// Backend kinds accepted by NewBackend.
const (
	KindOpenAI = "openai"
	KindGroq   = "groq"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation sent to a backend.
type Message struct {
	Role    Role
	Content string
}

// Params are the generation settings sent with every request.
type Params struct {
	// Model specifies the model identifier (e.g., "gpt-4o-mini", "llama3-70b-8192")
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls randomness; answers use 0.0
	Temperature float64
}

// Backend is a chat-completion provider.
// Implementations must be stateless and thread-safe.
type Backend interface {
	// Generate returns the text produced for messages, or an error wrapping
	// ErrGenerationService when the provider cannot be reached or fails.
	Generate(ctx context.Context, messages []Message, params Params) (string, error)
}

// BackendConfig selects and authenticates a provider.
type BackendConfig struct {
	Kind    string
	APIKey  string
	BaseURL string
}

// NewBackend constructs the provider named by cfg.Kind. The choice is made
// once here; callers hold the returned Backend for their whole lifetime.
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch cfg.Kind {
	case KindOpenAI, "":
		return NewOpenAIBackend(cfg.APIKey, cfg.BaseURL)
	case KindGroq:
		return NewGroqBackend(cfg.APIKey, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, cfg.Kind)
	}
}
