package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Yates-Labs/pdfchat/internal/notify"
	"github.com/Yates-Labs/pdfchat/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	resetCommand = "/reset"
	exitCommand  = "/exit"
)

var (
	topic        string
	notifyAnswer bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [pdf]",
	Short: "Start an interactive conversation about a PDF document",
	Long: `Start an interactive conversation about a PDF document.

The last exchanges of the conversation are sent along with every question, so
follow-up questions can refer to earlier answers. Type /reset to forget the
conversation and /exit to quit.

With --notify every answered question is also sent to the Telegram chat set in
TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID.

Examples:
  pdfchat chat info.pdf
  pdfchat chat info.pdf --topic pool --notify`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	addPromptFlags(chatCmd)
	chatCmd.Flags().StringVar(&topic, "topic", "", "Conversation key (default: a random id)")
	chatCmd.Flags().BoolVar(&notifyAnswer, "notify", false, "Forward each answer to Telegram")
}

func runChat(cmd *cobra.Command, args []string) error {
	pdf := args[0]

	prompt, err := readSystemPrompt(systemPrompt, systemPromptFile)
	if err != nil {
		return err
	}

	a, ctx, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	key := topic
	if key == "" {
		key = uuid.NewString()
	}
	ctx = logger.AddFields(logger.WithAction(ctx, "chat"), zap.String("topic", key))

	var n notify.Notifier = notify.Nop{}
	if notifyAnswer {
		if n, err = a.notifier(ctx); err != nil {
			return err
		}
	}

	fmt.Println(headerStyle.Render("Chatting about " + pdf))
	fmt.Println(contextStyle.Render(fmt.Sprintf("topic %s · %s to clear history · %s to quit", key, resetCommand, exitCommand)))
	fmt.Println()

	return chatLoop(ctx, os.Stdin, os.Stdout, a.sessions, n, key, pdf, prompt)
}

// asker is the part of orchestrator.Sessions the chat loop uses.
type asker interface {
	Ask(ctx context.Context, key, name, question, systemPrompt string) (string, error)
	Reset(key string)
	Forget(key string)
}

// chatLoop reads questions line by line until EOF, /exit or ctx is done,
// then forgets the conversation. Pipeline errors end the loop; notification
// failures are only logged.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, a asker, n notify.Notifier, key, pdf, prompt string) error {
	defer a.Forget(key)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, questionStyle.Render("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case exitCommand:
			return nil
		case resetCommand:
			a.Reset(key)
			fmt.Fprintln(out, successStyle.Render("✓ Conversation history cleared"))
			continue
		}

		answer, err := a.Ask(ctx, key, pdf, line, prompt)
		if err != nil {
			return fmt.Errorf("failed to answer: %w", err)
		}
		fmt.Fprintln(out, answerStyle.Render(answer))
		fmt.Fprintln(out)

		if err := n.Notify(ctx, line, answer); err != nil {
			ctxzap.Warn(ctx, "notification failed", zap.Error(err))
		}
	}
}
