package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode"

	"github.com/ShepAlderson/copilot-orchestra/internal/domain"
)

// TokenChunker splits documents into overlapping windows of whitespace
// tokens. Chunk text is a verbatim slice of the original document, so
// formatting inside a chunk is preserved.
type TokenChunker struct {
	size    int
	overlap int
}

func NewTokenChunker(size, overlap int) *TokenChunker {
	if size <= 0 {
		size = 512
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &TokenChunker{size: size, overlap: overlap}
}

type span struct {
	start int
	end   int
}

func (c *TokenChunker) Chunk(doc domain.Document) []domain.Chunk {
	tokens := tokenSpans(doc.Text)
	if len(tokens) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	step := c.size - c.overlap

	for start := 0; start < len(tokens); start += step {
		end := start + c.size
		if end > len(tokens) {
			end = len(tokens)
		}

		text := doc.Text[tokens[start].start:tokens[end-1].end]
		chunks = append(chunks, domain.Chunk{
			ID:      chunkID(doc.Path, start, end),
			DocPath: doc.Path,
			Text:    text,
		})

		if end == len(tokens) {
			break
		}
	}

	return chunks
}

// tokenSpans returns the byte offsets of each whitespace-separated token.
func tokenSpans(text string) []span {
	var spans []span
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				spans = append(spans, span{start: start, end: i})
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, span{start: start, end: len(text)})
	}
	return spans
}

func chunkID(path string, start, end int) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", path, start, end)))
	return hex.EncodeToString(hash[:8])
}
