package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ShepAlderson/copilot-orchestra/internal/domain"
	"github.com/ShepAlderson/copilot-orchestra/internal/port"
)

// Service orchestrates ingestion, retrieval and index lifecycle across
// the document reader, embedder, vector store and LLM.
//
// Index readiness is owned by the service and handed to request
// handlers by reference. Writer transitions (attach, ingest success,
// clear success) take the write lock; queries take a snapshot read.
type Service struct {
	reader   port.DocumentReader
	chunker  port.Chunker
	embedder port.Embedder
	llm      port.LLM
	store    port.VectorStore
	log      *slog.Logger

	defaultFileTypes []string
	defaultTopK      int

	// OnProgress, when set, is called after each document is embedded.
	// Used by the CLI to drive a progress bar.
	OnProgress func(done, total int)

	mu        sync.RWMutex
	readiness domain.Readiness
}

func New(
	reader port.DocumentReader,
	chunker port.Chunker,
	embedder port.Embedder,
	llm port.LLM,
	store port.VectorStore,
	defaultFileTypes []string,
	defaultTopK int,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &Service{
		reader:           reader,
		chunker:          chunker,
		embedder:         embedder,
		llm:              llm,
		store:            store,
		defaultFileTypes: defaultFileTypes,
		defaultTopK:      defaultTopK,
		log:              log,
		readiness:        domain.ReadinessNotAttempted,
	}
}

// Attach probes the vector store for a pre-existing, non-empty
// collection and marks the index ready if one is found. A cold store is
// a normal first-run state: failures are logged, never returned.
func (s *Service) Attach(ctx context.Context) {
	count, err := s.store.Count(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case err != nil:
		s.readiness = domain.ReadinessAbsent
		s.log.Warn("no existing index found", "error", err)
	case count == 0:
		s.readiness = domain.ReadinessAbsent
		s.log.Info("existing collection is empty, waiting for first ingestion")
	default:
		s.readiness = domain.ReadinessReady
		s.log.Info("loaded existing index", "vectors", count)
	}
}

// Readiness returns the current index readiness.
func (s *Service) Readiness() domain.Readiness {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readiness
}

// Clear drops the vector collection. Readiness is cleared only after
// the store confirms the deletion; a failed deletion leaves it as-is.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.store.DropCollection(ctx); err != nil {
		return domain.Internal(err, "deleting collection")
	}

	s.mu.Lock()
	s.readiness = domain.ReadinessAbsent
	s.mu.Unlock()

	s.log.Info("index cleared")
	return nil
}

func (s *Service) setReady() {
	s.mu.Lock()
	s.readiness = domain.ReadinessReady
	s.mu.Unlock()
}
