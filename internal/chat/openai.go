package chat

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIBackend implements Backend using OpenAI's chat completions API.
type OpenAIBackend struct {
	client openai.Client
}

// NewOpenAIBackend creates an OpenAI-backed chat backend.
// baseURL is optional and points the client at a compatible proxy.
func NewOpenAIBackend(apiKey, baseURL string, opts ...option.RequestOption) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", ErrInvalidConfig)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}

	return &OpenAIBackend{
		client: openai.NewClient(append(reqOpts, opts...)...),
	}, nil
}

// Generate sends messages to OpenAI and returns the generated text.
func (o *OpenAIBackend) Generate(ctx context.Context, messages []Message, params Params) (string, error) {
	return complete(ctx, o.client, "openai", messages, params)
}

// complete runs one chat completion against any OpenAI-compatible endpoint.
func complete(ctx context.Context, client openai.Client, provider string, messages []Message, params Params) (string, error) {
	if params.Model == "" {
		return "", fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}

	req := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(params.Model),
		Messages:    toOpenAIMessages(messages),
		Temperature: openai.Float(params.Temperature),
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = openai.Int(int64(params.MaxTokens))
	}

	completion, err := client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrGenerationService, provider, err)
	}

	if len(completion.Choices) == 0 {
		return "", nil
	}

	return completion.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
