// Package config loads pdfchat settings from the environment (and an optional
// .env file) into one validated struct that the rest of the program is built from.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Yates-Labs/pdfchat/internal/pkg/retry"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Backend identifiers accepted in PDFCHAT_BACKEND.
const (
	BackendOpenAI = "openai"
	BackendGroq   = "groq"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the application configuration
type Config struct {
	// Backend selects the chat-completion provider once at startup
	Backend string `env:"PDFCHAT_BACKEND" envDefault:"openai"`

	OpenAI     OpenAIConfig     `envPrefix:"OPENAI_"`
	Groq       GroqConfig       `envPrefix:"GROQ_"`
	Embeddings EmbeddingsConfig `envPrefix:"PDFCHAT_EMBEDDINGS_"`
	Pipeline   PipelineConfig   `envPrefix:"PDFCHAT_"`
	Telegram   TelegramConfig   `envPrefix:"TELEGRAM_"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Environment string `env:"PDFCHAT_ENV" envDefault:"local"`
}

type OpenAIConfig struct {
	APIKey    string `env:"API_KEY"`
	BaseURL   string `env:"BASE_URL"`
	Model     string `env:"MODEL" envDefault:"gpt-4o-mini"`
	MaxTokens int    `env:"MAX_TOKENS" envDefault:"850"`
}

type GroqConfig struct {
	APIKey    string `env:"API_KEY"`
	BaseURL   string `env:"BASE_URL" envDefault:"https://api.groq.com/openai/v1/"`
	Model     string `env:"MODEL" envDefault:"llama3-70b-8192"`
	MaxTokens int    `env:"MAX_TOKENS" envDefault:"1024"`
}

type EmbeddingsConfig struct {
	Model string `env:"MODEL" envDefault:"text-embedding-ada-002"`
	// Dimension is sent to the API only when positive; ada-002 rejects it
	Dimension int    `env:"DIMENSION" envDefault:"0"`
	Dir       string `env:"DIR" envDefault:"embeddings"`
}

type PipelineConfig struct {
	DataDir          string        `env:"DATA_DIR" envDefault:"data"`
	ChunkSize        int           `env:"CHUNK_SIZE" envDefault:"2000"`
	TopN             int           `env:"TOP_N" envDefault:"3"`
	HistorySize      int           `env:"HISTORY_SIZE" envDefault:"10"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"1h"`
	CacheContentHash bool          `env:"CACHE_CONTENT_HASH" envDefault:"false"`
}

// TelegramConfig is optional; notifications are disabled when either field is empty.
type TelegramConfig struct {
	BotToken string            `env:"BOT_TOKEN"`
	ChatID   int64             `env:"CHAT_ID"`
	Retry    retry.RetryConfig `envPrefix:"RETRY_"`
}

// LLM is the resolved chat backend selection.
type LLM struct {
	Backend   string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// Load reads the optional env files and parses the environment.
// Missing env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every problem at once instead of stopping at the first one.
func (c *Config) Validate() error {
	var problems []string

	switch c.Backend {
	case BackendOpenAI, BackendGroq:
	default:
		problems = append(problems, fmt.Sprintf("PDFCHAT_BACKEND must be %q or %q, got %q", BackendOpenAI, BackendGroq, c.Backend))
	}

	// Embeddings always go through OpenAI, whichever chat backend is selected.
	if c.OpenAI.APIKey == "" {
		problems = append(problems, "OPENAI_API_KEY is required")
	}
	if c.Backend == BackendGroq && c.Groq.APIKey == "" {
		problems = append(problems, "GROQ_API_KEY is required when PDFCHAT_BACKEND=groq")
	}

	if c.Embeddings.Model == "" {
		problems = append(problems, "PDFCHAT_EMBEDDINGS_MODEL must not be empty")
	}
	if c.Embeddings.Dimension < 0 {
		problems = append(problems, fmt.Sprintf("PDFCHAT_EMBEDDINGS_DIMENSION must not be negative, got %d", c.Embeddings.Dimension))
	}
	if c.LLM().Model == "" {
		problems = append(problems, "chat model must not be empty")
	}
	if c.LLM().MaxTokens <= 0 {
		problems = append(problems, fmt.Sprintf("max tokens must be positive, got %d", c.LLM().MaxTokens))
	}
	if c.Pipeline.ChunkSize <= 0 {
		problems = append(problems, fmt.Sprintf("PDFCHAT_CHUNK_SIZE must be positive, got %d", c.Pipeline.ChunkSize))
	}
	if c.Pipeline.TopN < 0 {
		problems = append(problems, fmt.Sprintf("PDFCHAT_TOP_N must not be negative, got %d", c.Pipeline.TopN))
	}
	if c.Pipeline.HistorySize <= 0 {
		problems = append(problems, fmt.Sprintf("PDFCHAT_HISTORY_SIZE must be positive, got %d", c.Pipeline.HistorySize))
	}
	if c.Pipeline.SessionTTL <= 0 {
		problems = append(problems, fmt.Sprintf("PDFCHAT_SESSION_TTL must be positive, got %s", c.Pipeline.SessionTTL))
	}

	if c.TelegramEnabled() && c.Telegram.Retry.Attempts == 0 {
		problems = append(problems, "TELEGRAM_RETRY_ATTEMPTS must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(problems, "\n  - "))
	}
	return nil
}

// LLM returns the settings of the selected chat backend.
func (c *Config) LLM() LLM {
	if c.Backend == BackendGroq {
		return LLM{
			Backend:   BackendGroq,
			APIKey:    c.Groq.APIKey,
			BaseURL:   c.Groq.BaseURL,
			Model:     c.Groq.Model,
			MaxTokens: c.Groq.MaxTokens,
		}
	}
	return LLM{
		Backend:   BackendOpenAI,
		APIKey:    c.OpenAI.APIKey,
		BaseURL:   c.OpenAI.BaseURL,
		Model:     c.OpenAI.Model,
		MaxTokens: c.OpenAI.MaxTokens,
	}
}

// TelegramEnabled reports whether both bot token and chat id are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != 0
}
