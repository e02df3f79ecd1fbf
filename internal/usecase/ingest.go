package usecase

import (
	"context"
	"os"

	"github.com/google/uuid"

	"github.com/ShepAlderson/copilot-orchestra/internal/domain"
	"github.com/ShepAlderson/copilot-orchestra/internal/port"
)

// IngestResult reports a completed ingestion.
type IngestResult struct {
	DocumentsIndexed int
	Path             string
}

// Ingest reads documents under path, chunks and embeds them, and writes
// the vectors to the store. On success the index becomes ready. On any
// failure the prior readiness is left untouched, so a failed ingestion
// cannot tear down a previously working index.
func (s *Service) Ingest(ctx context.Context, path string, fileTypes []string) (*IngestResult, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, domain.NotFound("Path not found: %s", path)
	}

	if len(fileTypes) == 0 {
		fileTypes = s.defaultFileTypes
	}

	docs, err := s.reader.Read(path, fileTypes)
	if err != nil {
		return nil, domain.Internal(err, "reading documents")
	}
	if len(docs) == 0 {
		return nil, domain.InvalidInput("No documents found")
	}
	s.log.Info("loaded documents", "count", len(docs), "path", path)

	var items []port.VectorItem
	dimension := 0

	for i, doc := range docs {
		chunks := s.chunker.Chunk(doc)
		if len(chunks) == 0 {
			continue
		}

		texts := make([]string, len(chunks))
		for j, ch := range chunks {
			texts[j] = ch.Text
		}

		vectors, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, domain.Internal(err, "embedding documents")
		}

		for j, ch := range chunks {
			if dimension == 0 {
				dimension = len(vectors[j])
			}
			items = append(items, port.VectorItem{
				ID:     uuid.NewString(),
				Vector: vectors[j],
				Text:   ch.Text,
				Metadata: map[string]string{
					"file_path": ch.DocPath,
				},
			})
		}

		if s.OnProgress != nil {
			s.OnProgress(i+1, len(docs))
		}
	}

	// Every matched file held only whitespace.
	if len(items) == 0 {
		return nil, domain.InvalidInput("No documents found")
	}

	if err := s.store.EnsureCollection(ctx, dimension); err != nil {
		return nil, domain.Internal(err, "preparing vector collection")
	}
	if err := s.store.Upsert(ctx, items); err != nil {
		return nil, domain.Internal(err, "writing vectors")
	}

	s.setReady()
	s.log.Info("index created", "documents", len(docs), "chunks", len(items))

	return &IngestResult{
		DocumentsIndexed: len(docs),
		Path:             path,
	}, nil
}
