package cmd

import (
	"fmt"

	"github.com/Yates-Labs/pdfchat/internal/pkg/logger"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the embedding cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [pdf...]",
	Short: "Remove cached embeddings so documents are embedded again",
	Long: `Remove the cached embeddings of PDF documents.

Use this after a document changed, or when a cache entry is reported as corrupt.

Examples:
  pdfchat cache clear info.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCacheClear,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, ctx, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()
	ctx = logger.WithAction(ctx, "cache_clear")

	for _, pdf := range args {
		if err := a.sessions.Invalidate(ctx, pdf); err != nil {
			return fmt.Errorf("failed to clear %s: %w", pdf, err)
		}
		fmt.Println(successStyle.Render("✓ Cleared " + pdf))
	}
	return nil
}
