package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShepAlderson/copilot-orchestra/internal/domain"
	"github.com/ShepAlderson/copilot-orchestra/internal/port"
)

type fakeReader struct {
	docs []domain.Document
	err  error
}

func (f *fakeReader) Read(root string, extensions []string) ([]domain.Document, error) {
	return f.docs, f.err
}

type fakeChunker struct{}

func (fakeChunker) Chunk(doc domain.Document) []domain.Chunk {
	if strings.TrimSpace(doc.Text) == "" {
		return nil
	}
	return []domain.Chunk{{ID: doc.Path + "#0", DocPath: doc.Path, Text: doc.Text}}
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return vectors, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeLLM struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeLLM) ModelName() string { return "fake-llm" }

type fakeStore struct {
	items   []port.VectorItem
	exists  bool
	results []port.VectorResult

	countErr  error
	ensureErr error
	upsertErr error
	searchErr error
	dropErr   error
}

func (f *fakeStore) EnsureCollection(_ context.Context, dimension int) error {
	if f.ensureErr != nil {
		return f.ensureErr
	}
	f.exists = true
	return nil
}

func (f *fakeStore) Count(_ context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	if !f.exists {
		return 0, errors.New("collection does not exist")
	}
	return len(f.items), nil
}

func (f *fakeStore) Upsert(_ context.Context, items []port.VectorItem) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeStore) Search(_ context.Context, query []float32, k int) ([]port.VectorResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.results) > k {
		return f.results[:k], nil
	}
	return f.results, nil
}

func (f *fakeStore) DropCollection(_ context.Context) error {
	if f.dropErr != nil {
		return f.dropErr
	}
	f.exists = false
	f.items = nil
	return nil
}

type fixture struct {
	svc      *Service
	reader   *fakeReader
	embedder *fakeEmbedder
	llm      *fakeLLM
	store    *fakeStore
}

func newFixture() *fixture {
	reader := &fakeReader{}
	embedder := &fakeEmbedder{}
	llm := &fakeLLM{answer: "the answer"}
	store := &fakeStore{}
	svc := New(reader, fakeChunker{}, embedder, llm, store,
		[]string{".md", ".txt"}, 3, nil)
	return &fixture{svc: svc, reader: reader, embedder: embedder, llm: llm, store: store}
}

func ptr(f float64) *float64 { return &f }

func TestIngestPathNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Ingest(context.Background(), "/definitely/not/there", nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.Contains(t, err.Error(), "/definitely/not/there")
	assert.Equal(t, domain.ReadinessNotAttempted, f.svc.Readiness())
}

func TestIngestNoDocuments(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Ingest(context.Background(), t.TempDir(), nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidInput, domain.KindOf(err))
	assert.Equal(t, domain.ReadinessNotAttempted, f.svc.Readiness())
}

func TestIngestSuccess(t *testing.T) {
	f := newFixture()
	f.reader.docs = []domain.Document{
		{Path: "/docs/a.md", Text: "alpha content"},
		{Path: "/docs/b.md", Text: "beta content"},
		{Path: "/docs/c.md", Text: "gamma content"},
	}

	result, err := f.svc.Ingest(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.DocumentsIndexed)
	assert.Equal(t, domain.ReadinessReady, f.svc.Readiness())
	assert.Len(t, f.store.items, 3)
	assert.Equal(t, "/docs/a.md", f.store.items[0].Metadata["file_path"])
}

func TestIngestEmbedderFailureKeepsReadiness(t *testing.T) {
	f := newFixture()
	f.reader.docs = []domain.Document{{Path: "/docs/a.md", Text: "alpha"}}

	// Service was ready from a previous ingestion.
	f.svc.setReady()
	f.embedder.err = errors.New("embedding host down")

	_, err := f.svc.Ingest(context.Background(), t.TempDir(), nil)
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Contains(t, err.Error(), "embedding host down")
	assert.Equal(t, domain.ReadinessReady, f.svc.Readiness())
}

func TestIngestStoreFailureKeepsReadiness(t *testing.T) {
	f := newFixture()
	f.reader.docs = []domain.Document{{Path: "/docs/a.md", Text: "alpha"}}
	f.store.upsertErr = errors.New("qdrant unreachable")

	_, err := f.svc.Ingest(context.Background(), t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qdrant unreachable")
	assert.Equal(t, domain.ReadinessNotAttempted, f.svc.Readiness())
}

func TestIngestProgressCallback(t *testing.T) {
	f := newFixture()
	f.reader.docs = []domain.Document{
		{Path: "a", Text: "one"},
		{Path: "b", Text: "two"},
	}

	var seen []int
	f.svc.OnProgress = func(done, total int) {
		assert.Equal(t, 2, total)
		seen = append(seen, done)
	}

	_, err := f.svc.Ingest(context.Background(), t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestQueryBeforeIngest(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Query(context.Background(), "what is X?", 3)
	require.Error(t, err)
	assert.Equal(t, domain.KindPrecondition, domain.KindOf(err))
}

func TestQuerySuccess(t *testing.T) {
	f := newFixture()
	f.svc.setReady()
	f.store.results = []port.VectorResult{
		{ID: "1", Score: ptr(0.9), Text: "first chunk", Metadata: map[string]string{"file_path": "/docs/a.md"}},
		{ID: "2", Score: ptr(0.8), Text: "second chunk", Metadata: map[string]string{"file_path": "/docs/b.md"}},
	}

	result, err := f.svc.Query(context.Background(), "what is X?", 2)
	require.NoError(t, err)

	assert.Equal(t, "the answer", result.Answer)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, "/docs/a.md", result.Sources[0].File)
	assert.Equal(t, 0.9, *result.Sources[0].Score)
	assert.Equal(t, "first chunk", result.Sources[0].Chunk)

	// The synthesis prompt carries both chunks and the question.
	require.Len(t, f.llm.prompts, 1)
	assert.Contains(t, f.llm.prompts[0], "first chunk")
	assert.Contains(t, f.llm.prompts[0], "second chunk")
	assert.Contains(t, f.llm.prompts[0], "what is X?")
}

func TestQueryRespectsTopK(t *testing.T) {
	f := newFixture()
	f.svc.setReady()
	for i := 0; i < 5; i++ {
		f.store.results = append(f.store.results, port.VectorResult{
			ID:    fmt.Sprint(i),
			Score: ptr(1.0 - float64(i)*0.1),
			Text:  fmt.Sprintf("chunk %d", i),
		})
	}

	result, err := f.svc.Query(context.Background(), "q", 2)
	require.NoError(t, err)
	require.Len(t, result.Sources, 2)

	// Ordered by retrieval rank, scores descending.
	assert.Greater(t, *result.Sources[0].Score, *result.Sources[1].Score)
}

func TestQuerySourceShaping(t *testing.T) {
	f := newFixture()
	f.svc.setReady()

	long := strings.Repeat("x", 250)
	f.store.results = []port.VectorResult{
		{ID: "1", Text: long}, // no metadata, no score
		{ID: "2", Score: ptr(0.5), Text: "short", Metadata: map[string]string{"file_path": "/a.md"}},
	}

	result, err := f.svc.Query(context.Background(), "q", 3)
	require.NoError(t, err)
	require.Len(t, result.Sources, 2)

	assert.Equal(t, "unknown", result.Sources[0].File)
	assert.Nil(t, result.Sources[0].Score)
	assert.Len(t, result.Sources[0].Chunk, 203)
	assert.True(t, strings.HasSuffix(result.Sources[0].Chunk, "..."))

	assert.Equal(t, "short", result.Sources[1].Chunk)
	assert.Equal(t, 0.5, *result.Sources[1].Score)
}

func TestQueryEmptyRetrieval(t *testing.T) {
	f := newFixture()
	f.svc.setReady()

	result, err := f.svc.Query(context.Background(), "q", 3)
	require.NoError(t, err)
	assert.Equal(t, "Empty Response", result.Answer)
	assert.Empty(t, result.Sources)
	assert.Empty(t, f.llm.prompts)
}

func TestQuerySearchFailure(t *testing.T) {
	f := newFixture()
	f.svc.setReady()
	f.store.searchErr = errors.New("connection refused")

	_, err := f.svc.Query(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Contains(t, err.Error(), "vector search")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestQueryLLMFailure(t *testing.T) {
	f := newFixture()
	f.svc.setReady()
	f.store.results = []port.VectorResult{{ID: "1", Text: "chunk"}}
	f.llm.err = errors.New("model timed out")

	_, err := f.svc.Query(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model timed out")
}

func TestClear(t *testing.T) {
	f := newFixture()
	f.store.exists = true
	f.svc.setReady()

	require.NoError(t, f.svc.Clear(context.Background()))
	assert.Equal(t, domain.ReadinessAbsent, f.svc.Readiness())

	// Queries fail with a precondition error afterwards.
	_, err := f.svc.Query(context.Background(), "q", 3)
	assert.Equal(t, domain.KindPrecondition, domain.KindOf(err))
}

func TestClearFailureKeepsReadiness(t *testing.T) {
	f := newFixture()
	f.svc.setReady()
	f.store.dropErr = errors.New("store unreachable")

	err := f.svc.Clear(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Equal(t, domain.ReadinessReady, f.svc.Readiness())
}

func TestClearTwice(t *testing.T) {
	f := newFixture()
	f.store.exists = true
	f.svc.setReady()

	require.NoError(t, f.svc.Clear(context.Background()))
	// Second clear succeeds against this store; either outcome is
	// acceptable, the process must simply survive it.
	_ = f.svc.Clear(context.Background())
	assert.Equal(t, domain.ReadinessAbsent, f.svc.Readiness())
}

func TestAttach(t *testing.T) {
	t.Run("existing index", func(t *testing.T) {
		f := newFixture()
		f.store.exists = true
		f.store.items = []port.VectorItem{{ID: "1"}}

		f.svc.Attach(context.Background())
		assert.Equal(t, domain.ReadinessReady, f.svc.Readiness())
	})

	t.Run("empty collection", func(t *testing.T) {
		f := newFixture()
		f.store.exists = true

		f.svc.Attach(context.Background())
		assert.Equal(t, domain.ReadinessAbsent, f.svc.Readiness())
	})

	t.Run("missing collection", func(t *testing.T) {
		f := newFixture()

		f.svc.Attach(context.Background())
		assert.Equal(t, domain.ReadinessAbsent, f.svc.Readiness())
	})

	t.Run("store unreachable", func(t *testing.T) {
		f := newFixture()
		f.store.countErr = errors.New("dial tcp: connection refused")

		f.svc.Attach(context.Background())
		assert.Equal(t, domain.ReadinessAbsent, f.svc.Readiness())
	})
}

func TestSynthesizeTreeSummarize(t *testing.T) {
	f := newFixture()
	f.svc.setReady()

	// Two chunks that cannot share one prompt force a summarize pass.
	big := strings.Repeat("a", contextBudget)
	f.store.results = []port.VectorResult{
		{ID: "1", Text: big},
		{ID: "2", Text: big},
	}

	result, err := f.svc.Query(context.Background(), "q", 2)
	require.NoError(t, err)
	assert.Equal(t, "the answer", result.Answer)

	// Two batch summaries plus the final combine.
	assert.Equal(t, 3, len(f.llm.prompts))
}

func TestBatchByBudget(t *testing.T) {
	cases := []struct {
		name   string
		chunks []string
		budget int
		want   int
	}{
		{"all fit", []string{"aa", "bb"}, 100, 1},
		{"split", []string{"aaaa", "bbbb", "cccc"}, 8, 2},
		{"oversized chunk alone", []string{strings.Repeat("a", 50), "b"}, 10, 2},
		{"empty", nil, 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, batchByBudget(tc.chunks, tc.budget), tc.want)
		})
	}
}

func TestTruncateExcerpt(t *testing.T) {
	short := strings.Repeat("a", 200)
	assert.Equal(t, short, truncateExcerpt(short))

	long := strings.Repeat("a", 201)
	got := truncateExcerpt(long)
	assert.Len(t, got, 203)
	assert.Equal(t, strings.Repeat("a", 200)+"...", got)

	// Multibyte text is cut on rune boundaries.
	unicode := strings.Repeat("é", 300)
	got = truncateExcerpt(unicode)
	assert.Equal(t, strings.Repeat("é", 200)+"...", got)
}
