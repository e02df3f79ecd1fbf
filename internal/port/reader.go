package port

import "github.com/ShepAlderson/copilot-orchestra/internal/domain"

// DocumentReader recursively enumerates files under a directory that
// match the given extensions and returns their contents.
type DocumentReader interface {
	Read(root string, extensions []string) ([]domain.Document, error)
}
