package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var ingestFileTypes []string

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest documents without running the server",
	Long: `Read documents from a directory, embed them, and write the vectors
to the configured store.

Examples:
  orchestra-rag ingest ./docs
  orchestra-rag ingest ./src --file-types .go,.md`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringSliceVar(&ingestFileTypes, "file-types", nil, "file extensions to ingest (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	svc, closeStore, err := buildService(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var bar *progressbar.ProgressBar
	svc.OnProgress = func(done, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total), "embedding")
		}
		_ = bar.Set(done)
	}

	result, err := svc.Ingest(context.Background(), path, ingestFileTypes)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Indexed %d documents from %s\n", result.DocumentsIndexed, result.Path)
	return nil
}
