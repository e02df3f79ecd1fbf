package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ShepAlderson/copilot-orchestra/config"
	"github.com/ShepAlderson/copilot-orchestra/internal/adapter/chunker"
	"github.com/ShepAlderson/copilot-orchestra/internal/adapter/embedding"
	"github.com/ShepAlderson/copilot-orchestra/internal/adapter/fs"
	"github.com/ShepAlderson/copilot-orchestra/internal/adapter/llm"
	"github.com/ShepAlderson/copilot-orchestra/internal/adapter/vectorstore/bolt"
	"github.com/ShepAlderson/copilot-orchestra/internal/adapter/vectorstore/qdrant"
	"github.com/ShepAlderson/copilot-orchestra/internal/port"
	"github.com/ShepAlderson/copilot-orchestra/internal/usecase"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "orchestra-rag",
	Short: "RAG service for the Copilot Orchestra",
	Long: `orchestra-rag ingests documents from a directory, stores their
embeddings in a vector store, and answers questions against them
through a local Ollama model.

Example usage:
  orchestra-rag serve                  # Start the HTTP API
  orchestra-rag ingest ./docs          # One-shot ingestion`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger = newLogger(cfg.Logging.Level)
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "orchestra.yaml", "config file")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// buildService wires the collaborators selected by the config into the
// orchestration service. The returned closer releases the local store
// when one is in use.
func buildService(cfg *config.Config) (*usecase.Service, func(), error) {
	var (
		store  port.VectorStore
		closer = func() {}
	)

	switch cfg.VectorStore.Type {
	case "bolt":
		s, err := bolt.Open(cfg.VectorStore.Bolt.Path, cfg.VectorStore.Collection)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local vector store: %w", err)
		}
		store = s
		closer = func() { s.Close() }
	case "qdrant", "":
		store = qdrant.New(
			cfg.VectorStore.Qdrant.Addr(),
			cfg.VectorStore.Collection,
			time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs)*time.Second,
		)
	default:
		return nil, nil, fmt.Errorf("unknown vector store type: %s", cfg.VectorStore.Type)
	}

	svc := usecase.New(
		fs.NewReader(cfg.Ingest.Excludes),
		chunker.NewTokenChunker(cfg.Chunking.Size, cfg.Chunking.Overlap),
		embedding.NewOllama(cfg.Ollama.BaseURL(), cfg.Embedding.Model, cfg.Embedding.BatchSize),
		llm.NewOllama(cfg.Ollama.BaseURL(), cfg.Ollama.Model, time.Duration(cfg.Ollama.TimeoutSecs)*time.Second),
		store,
		cfg.Ingest.FileTypes,
		cfg.Query.TopK,
		logger,
	)
	return svc, closer, nil
}
