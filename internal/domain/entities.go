package domain

// Document is a raw file read from disk, before chunking.
type Document struct {
	Path string
	Text string
}

// Chunk is a bounded slice of a document's text.
type Chunk struct {
	ID      string
	DocPath string
	Text    string
}

// RetrievedSource describes one chunk that contributed to an answer.
// Score is nil when the retriever did not supply one.
type RetrievedSource struct {
	File  string   `json:"file"`
	Score *float64 `json:"score"`
	Chunk string   `json:"chunk"`
}

// Readiness tracks whether the vector index is usable for queries.
type Readiness int

const (
	ReadinessNotAttempted Readiness = iota
	ReadinessReady
	ReadinessAbsent
)

func (r Readiness) String() string {
	switch r {
	case ReadinessReady:
		return "ready"
	case ReadinessAbsent:
		return "absent"
	default:
		return "not_attempted"
	}
}

// Ready reports whether queries may run.
func (r Readiness) Ready() bool {
	return r == ReadinessReady
}
