package notify

import (
	"context"
	"errors"
	"fmt"

	pkgretry "github.com/Yates-Labs/pdfchat/internal/pkg/retry"
	"github.com/avast/retry-go/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

var ErrMissingCredentials = errors.New("telegram bot token and chat id are required")

var _ Notifier = (*Telegram)(nil)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetMe() (tgbotapi.User, error)
}

// Telegram posts notifications to one chat through a bot.
type Telegram struct {
	sender    Sender
	chatID    int64
	retryOpts []retry.Option
}

// NewTelegram connects to the Bot API with token. Connecting already checks
// the token, so a bad token fails here.
func NewTelegram(token string, chatID int64, rc *pkgretry.RetryConfig) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, ErrMissingCredentials
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return NewTelegramWithSender(bot, chatID, rc), nil
}

// NewTelegramWithSender builds a notifier over an existing sender. A nil
// retry config means pkgretry.DefaultRetryConfig.
func NewTelegramWithSender(sender Sender, chatID int64, rc *pkgretry.RetryConfig) *Telegram {
	if rc == nil {
		rc = pkgretry.DefaultRetryConfig()
	}
	return &Telegram{
		sender:    sender,
		chatID:    chatID,
		retryOpts: rc.ToRetryOptions(),
	}
}

// Verify asks the Bot API who the bot is and returns its username.
func (t *Telegram) Verify(ctx context.Context) (string, error) {
	me, err := t.sender.GetMe()
	if err != nil {
		return "", fmt.Errorf("verify telegram bot: %w", err)
	}
	ctxzap.Info(ctx, "telegram bot verified",
		zap.String("first_name", me.FirstName),
		zap.String("username", me.UserName),
	)
	return me.UserName, nil
}

// Notify sends text, with title in bold above it, retrying failed sends.
func (t *Telegram) Notify(ctx context.Context, title, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatHTML(title, text))
	msg.ParseMode = tgbotapi.ModeHTML

	opts := append([]retry.Option{
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			ctxzap.Warn(ctx, "failed to send telegram message, retrying",
				zap.Uint("attempt", n+1),
				zap.Int64("chat_id", t.chatID),
				zap.Error(err),
			)
		}),
	}, t.retryOpts...)

	err := retry.Do(func() error {
		_, err := t.sender.Send(msg)
		return err
	}, opts...)
	if err != nil {
		ctxzap.Error(ctx, "failed to send telegram message after all retries",
			zap.Int64("chat_id", t.chatID),
			zap.Error(err),
		)
		return fmt.Errorf("send telegram message: %w", err)
	}

	ctxzap.Debug(ctx, "telegram message sent", zap.Int64("chat_id", t.chatID))
	return nil
}
