package cmd

import (
	"fmt"

	"github.com/Yates-Labs/pdfchat/internal/pkg/logger"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf...]",
	Short: "Precompute embeddings for PDF documents",
	Long: `Extract, chunk and embed PDF documents ahead of the first question.

Documents that already have cached embeddings are skipped.

Examples:
  pdfchat ingest info.pdf
  pdfchat ingest info.pdf pool.pdf courses.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, ctx, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	ctx = logger.WithAction(ctx, "ingest")

	for _, pdf := range args {
		fmt.Println(contextStyle.Render("→ Embedding " + pdf + "..."))
		n, err := a.sessions.Ingest(ctx, pdf)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", pdf, err)
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s: %d chunks", pdf, n)))
	}
	return nil
}
