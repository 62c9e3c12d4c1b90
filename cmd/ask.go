package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Yates-Labs/pdfchat/internal/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	systemPrompt     string
	systemPromptFile string
	verbose          bool
)

var askCmd = &cobra.Command{
	Use:   "ask [pdf] [question]",
	Short: "Ask a single question about a PDF document",
	Long: `Ask a natural language question about a PDF document from the data directory.

This command:
1. Loads the cached embeddings for the document, or extracts, chunks and embeds it
2. Embeds the question and retrieves the most similar chunks
3. Generates an answer with the configured chat backend (OpenAI or Groq)

Required environment variables:
  OPENAI_API_KEY     - OpenAI API key for embeddings and the openai backend
  GROQ_API_KEY       - Groq API key when PDFCHAT_BACKEND=groq

Examples:
  pdfchat ask info.pdf "מה שעות הפתיחה?"
  pdfchat ask info.pdf "מי אחראי על החוגים?" --system-prompt-file prompts/matnas.txt
  pdfchat ask info.pdf "כמה עולה המנוי?" --verbose`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	addPromptFlags(askCmd)
	askCmd.Flags().BoolVar(&verbose, "verbose", false, "Show detailed progress")
}

func addPromptFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&systemPrompt, "system-prompt", "", "System prompt sent with every question")
	cmd.Flags().StringVar(&systemPromptFile, "system-prompt-file", "", "Read the system prompt from a file")
}

func runAsk(cmd *cobra.Command, args []string) error {
	pdf := args[0]
	question := args[1]

	prompt, err := readSystemPrompt(systemPrompt, systemPromptFile)
	if err != nil {
		return err
	}

	a, ctx, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	ctx = logger.WithAction(ctx, "ask")

	return askQuestion(ctx, os.Stdout, a.sessions, pdf, question, prompt, verbose)
}

// documentAsker is the part of orchestrator.Sessions the ask command uses.
type documentAsker interface {
	Ingest(ctx context.Context, name string) (int, error)
	Ask(ctx context.Context, key, name, question, systemPrompt string) (string, error)
}

// askQuestion prepares the document, then answers question, printing one
// progress line per stage when verbose is set.
func askQuestion(ctx context.Context, out io.Writer, d documentAsker, pdf, question, prompt string, verbose bool) error {
	// Print question
	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Question:"))
	fmt.Fprintln(out, questionStyle.Render(question))
	fmt.Fprintln(out)

	// Step 1: Load or build the document embeddings
	if verbose {
		fmt.Fprintln(out, contextStyle.Render("→ Loading document embeddings..."))
	}
	chunks, err := d.Ingest(ctx, pdf)
	if err != nil {
		return fmt.Errorf("failed to prepare %s: %w", pdf, err)
	}
	if verbose {
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✓ %s ready: %d chunks", pdf, chunks)))
	}

	// Step 2: Retrieve context and generate the answer
	if verbose {
		fmt.Fprintln(out, contextStyle.Render("→ Retrieving relevant context and generating answer..."))
	}
	answer, err := d.Ask(ctx, "ask", pdf, question, prompt)
	if err != nil {
		return fmt.Errorf("failed to answer: %w", err)
	}
	if verbose {
		fmt.Fprintln(out, successStyle.Render("✓ Answer generated"))
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, headerStyle.Render("Answer:"))
	fmt.Fprintln(out)
	fmt.Fprintln(out, answerStyle.Render(answer))
	fmt.Fprintln(out)

	return nil
}
