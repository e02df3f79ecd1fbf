package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShepAlderson/copilot-orchestra/internal/domain"
)

// QueryResult holds the synthesized answer and the chunks it drew on,
// ordered by retrieval rank.
type QueryResult struct {
	Answer  string
	Sources []domain.RetrievedSource
}

const (
	// excerptLimit caps source excerpts in query responses.
	excerptLimit = 200

	// contextBudget bounds the context characters per synthesis prompt;
	// larger retrievals are summarized in batches first.
	contextBudget = 12000

	maxSummaryDepth = 4
)

const answerPrompt = `Context information from multiple sources is below.
---------------------
%s
---------------------
Given the information from multiple sources and not prior knowledge, answer the query.
Query: %s
Answer: `

// Query answers a question from the indexed documents: embed the
// question, retrieve the top-k nearest chunks, then summarize across
// all of them with the LLM.
func (s *Service) Query(ctx context.Context, question string, topK int) (*QueryResult, error) {
	if !s.Readiness().Ready() {
		return nil, domain.Precondition("No documents indexed yet. Please ingest documents first.")
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}

	s.log.Info("querying", "question", question, "top_k", topK)

	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, domain.Internal(err, "embedding query")
	}
	if len(vectors) == 0 {
		return nil, domain.Internal(fmt.Errorf("embedder returned no vector"), "embedding query")
	}

	results, err := s.store.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, domain.Internal(err, "vector search")
	}
	if len(results) == 0 {
		return &QueryResult{Answer: "Empty Response", Sources: []domain.RetrievedSource{}}, nil
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}

	answer, err := s.synthesize(ctx, question, texts)
	if err != nil {
		return nil, domain.Internal(err, "generating answer")
	}

	sources := make([]domain.RetrievedSource, len(results))
	for i, r := range results {
		file := r.Metadata["file_path"]
		if file == "" {
			file = "unknown"
		}
		sources[i] = domain.RetrievedSource{
			File:  file,
			Score: r.Score,
			Chunk: truncateExcerpt(r.Text),
		}
	}

	return &QueryResult{Answer: answer, Sources: sources}, nil
}

// synthesize combines the retrieved chunks into one answer. When the
// chunks exceed the context budget they are summarized batch by batch
// and the summaries combined, tree style, until one prompt fits.
func (s *Service) synthesize(ctx context.Context, question string, chunks []string) (string, error) {
	for depth := 0; depth < maxSummaryDepth; depth++ {
		batches := batchByBudget(chunks, contextBudget)
		if len(batches) <= 1 {
			break
		}

		summaries := make([]string, 0, len(batches))
		for _, batch := range batches {
			summary, err := s.generate(ctx, question, batch)
			if err != nil {
				return "", err
			}
			summaries = append(summaries, summary)
		}
		chunks = summaries
	}

	return s.generate(ctx, question, chunks)
}

func (s *Service) generate(ctx context.Context, question string, chunks []string) (string, error) {
	prompt := fmt.Sprintf(answerPrompt, strings.Join(chunks, "\n\n"), question)
	return s.llm.Generate(ctx, prompt)
}

// batchByBudget groups chunks so each batch stays under the character
// budget. A single oversized chunk forms a batch of its own.
func batchByBudget(chunks []string, budget int) [][]string {
	var batches [][]string
	var current []string
	size := 0

	for _, chunk := range chunks {
		if len(current) > 0 && size+len(chunk) > budget {
			batches = append(batches, current)
			current = nil
			size = 0
		}
		current = append(current, chunk)
		size += len(chunk)
	}
	if len(current) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// truncateExcerpt caps text at excerptLimit characters, appending a
// marker only when something was cut.
func truncateExcerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}
	return string(runes[:excerptLimit]) + "..."
}
