package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Yates-Labs/pdfchat/internal/chat"
	"github.com/Yates-Labs/pdfchat/internal/config"
	"github.com/Yates-Labs/pdfchat/internal/document"
	"github.com/Yates-Labs/pdfchat/internal/notify"
	"github.com/Yates-Labs/pdfchat/internal/orchestrator"
	"github.com/Yates-Labs/pdfchat/internal/pkg/logger"
	"github.com/Yates-Labs/pdfchat/internal/rag"
	"github.com/Yates-Labs/pdfchat/internal/rag/store"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// DefaultSystemPrompt is used when no prompt flag is given.
const DefaultSystemPrompt = "אתה עוזר וירטואלי שעונה על שאלות בעברית. " +
	"ענה אך ורק על סמך המידע שבהקשר שסופק לך, בקצרה ובצורה ברורה. " +
	"אם התשובה אינה מופיעה במידע, אמור שאינך יודע."

// app holds everything a command needs, built once from the configuration.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	sessions *orchestrator.Sessions
}

// newApp loads configuration and wires the pipeline. The returned context
// carries the logger.
func newApp(ctx context.Context) (*app, context.Context, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, ctx, err
	}

	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, ctx, err
	}
	ctx = ctxzap.ToContext(ctx, log)

	var embedOpts []option.RequestOption
	if cfg.OpenAI.BaseURL != "" {
		embedOpts = append(embedOpts, option.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	embedder, err := rag.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.Embeddings.Model, cfg.Embeddings.Dimension, embedOpts...)
	if err != nil {
		return nil, ctx, fmt.Errorf("create embedder: %w", err)
	}

	cache, err := store.NewFileStore(cfg.Embeddings.Dir)
	if err != nil {
		return nil, ctx, err
	}

	llm := cfg.LLM()
	backend, err := chat.NewBackend(chat.BackendConfig{
		Kind:    llm.Backend,
		APIKey:  llm.APIKey,
		BaseURL: llm.BaseURL,
	})
	if err != nil {
		return nil, ctx, fmt.Errorf("create chat backend: %w", err)
	}

	loader := document.NewLoader(cfg.Pipeline.DataDir, nil)
	sessions, err := orchestrator.NewSessions(
		orchestrator.Components{
			Loader:    loader,
			Embedder:  embedder,
			Store:     cache,
			Generator: chat.NewGenerator(backend, llm.Model, llm.MaxTokens),
		},
		orchestrator.Config{
			ChunkSize:       cfg.Pipeline.ChunkSize,
			TopN:            cfg.Pipeline.TopN,
			HistorySize:     cfg.Pipeline.HistorySize,
			ContentHashKeys: cfg.Pipeline.CacheContentHash,
		},
		cfg.Pipeline.SessionTTL,
	)
	if err != nil {
		return nil, ctx, err
	}

	log.Debug("pipeline ready",
		zap.String("backend", llm.Backend),
		zap.String("model", llm.Model),
		zap.String("embeddings_model", embedder.GetModel()),
		zap.Int("embeddings_dimension", embedder.GetDimension()),
		zap.String("data_dir", loader.Dir()),
		zap.String("embeddings_dir", cache.Dir()),
	)

	return &app{cfg: cfg, log: log, sessions: sessions}, ctx, nil
}

// notifier returns the Telegram notifier, verified, or an error when it is
// not configured.
func (a *app) notifier(ctx context.Context) (notify.Notifier, error) {
	if !a.cfg.TelegramEnabled() {
		return nil, fmt.Errorf("%w: set TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID", notify.ErrMissingCredentials)
	}
	tg, err := notify.NewTelegram(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, &a.cfg.Telegram.Retry)
	if err != nil {
		return nil, err
	}
	if _, err := tg.Verify(ctx); err != nil {
		return nil, err
	}
	return tg, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

// readSystemPrompt resolves the prompt flags: a file wins over the inline
// text, and neither means DefaultSystemPrompt.
func readSystemPrompt(inline, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read system prompt file: %w", err)
		}
		if prompt := strings.TrimSpace(string(data)); prompt != "" {
			return prompt, nil
		}
		return "", fmt.Errorf("system prompt file %s is empty", file)
	}
	if prompt := strings.TrimSpace(inline); prompt != "" {
		return prompt, nil
	}
	return DefaultSystemPrompt, nil
}
