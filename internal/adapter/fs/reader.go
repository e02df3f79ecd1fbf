package fs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ShepAlderson/copilot-orchestra/internal/domain"
)

// Reader recursively enumerates files under a directory, filtered by
// extension, and reads their contents.
type Reader struct {
	excludes []string
}

func NewReader(excludes []string) *Reader {
	return &Reader{excludes: excludes}
}

// Read walks root and returns one Document per file whose extension is
// in extensions. Extension matching is case-insensitive. A read failure
// on any matched file aborts the whole enumeration.
func (r *Reader) Read(root string, extensions []string) ([]domain.Document, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	extSet := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extSet[strings.ToLower(ext)] = struct{}{}
	}

	var docs []domain.Document

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if info.IsDir() {
			if r.shouldExclude(relPath + "/") {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := extSet[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		if r.shouldExclude(relPath) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		docs = append(docs, domain.Document{
			Path: path,
			Text: string(data),
		})
		return nil
	})

	return docs, err
}

func (r *Reader) shouldExclude(path string) bool {
	for _, pattern := range r.excludes {
		matched, err := doublestar.Match(pattern, filepath.ToSlash(path))
		if err == nil && matched {
			return true
		}
	}
	return false
}
