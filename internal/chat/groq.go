package chat

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultGroqBaseURL is Groq's OpenAI-compatible endpoint.
const DefaultGroqBaseURL = "https://api.groq.com/openai/v1/"

// GroqBackend implements Backend against Groq's OpenAI-compatible chat API.
type GroqBackend struct {
	client openai.Client
}

// NewGroqBackend creates a Groq-backed chat backend. An empty baseURL
// means DefaultGroqBaseURL.
func NewGroqBackend(apiKey, baseURL string, opts ...option.RequestOption) (*GroqBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing Groq API key", ErrInvalidConfig)
	}
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	}

	return &GroqBackend{
		client: openai.NewClient(append(reqOpts, opts...)...),
	}, nil
}

// Generate sends messages to Groq and returns the generated text.
func (g *GroqBackend) Generate(ctx context.Context, messages []Message, params Params) (string, error) {
	return complete(ctx, g.client, "groq", messages, params)
}
