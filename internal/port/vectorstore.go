package port

import "context"

// VectorStore persists embedding vectors in a named collection and
// supports nearest-neighbor search over them.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context, dimension int) error

	// Count returns the number of stored vectors, or an error if the
	// collection does not exist or the store is unreachable.
	Count(ctx context.Context) (int, error)

	// Upsert adds or updates vectors in the collection.
	Upsert(ctx context.Context, items []VectorItem) error

	// Search finds the k nearest vectors to the query.
	Search(ctx context.Context, query []float32, k int) ([]VectorResult, error)

	// DropCollection deletes the collection and all vectors in it.
	DropCollection(ctx context.Context) error
}

// VectorItem represents a vector to be stored.
type VectorItem struct {
	ID       string            // Unique identifier
	Vector   []float32         // Embedding vector
	Text     string            // Chunk text
	Metadata map[string]string // Optional metadata (source path etc.)
}

// VectorResult represents a search result, ordered by descending score.
// Score is nil when the store did not report one.
type VectorResult struct {
	ID       string
	Score    *float64
	Text     string
	Metadata map[string]string
}
