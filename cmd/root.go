package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "pdfchat",
	Short: "pdfchat - Ask questions about PDF documents",
	Long: `pdfchat answers questions about PDF documents using retrieval-augmented generation.

Each document is split into chunks and embedded once; the embeddings are cached
on disk. Questions are embedded, matched against the chunks by cosine similarity,
and answered by a chat model from the most relevant chunks and the recent
conversation.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file with configuration")
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
		stop()
		os.Exit(1)
	}
}
