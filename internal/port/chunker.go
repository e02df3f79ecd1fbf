package port

import "github.com/ShepAlderson/copilot-orchestra/internal/domain"

type Chunker interface {
	Chunk(doc domain.Document) []domain.Chunk
}
