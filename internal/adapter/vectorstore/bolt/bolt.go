package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/ShepAlderson/copilot-orchestra/internal/port"
)

// Store implements the vector store port on a local bbolt file, for
// single-node deployments without a Qdrant server. The collection maps
// to a bucket; search is brute-force cosine similarity.
type Store struct {
	db         *bbolt.DB
	collection []byte
	mu         sync.RWMutex
}

type storedVector struct {
	Vector   []float32         `json:"v"`
	Text     string            `json:"t"`
	Metadata map[string]string `json:"m,omitempty"`
}

func Open(path, collection string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	return &Store{db: db, collection: []byte(collection)}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureCollection(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.collection)
		return err
	})
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.collection)
		if b == nil {
			return fmt.Errorf("collection %s does not exist", s.collection)
		}
		count = b.Stats().KeyN
		return nil
	})
	return count, err
}

func (s *Store) Upsert(_ context.Context, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.collection)
		if b == nil {
			return fmt.Errorf("collection %s does not exist", s.collection)
		}

		for _, item := range items {
			data, err := json.Marshal(storedVector{
				Vector:   item.Vector,
				Text:     item.Text,
				Metadata: item.Metadata,
			})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Search(_ context.Context, query []float32, k int) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		id    string
		score float64
		entry storedVector
	}

	var scores []scored
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.collection)
		if b == nil {
			return fmt.Errorf("collection %s does not exist", s.collection)
		}

		return b.ForEach(func(key, value []byte) error {
			var stored storedVector
			if err := json.Unmarshal(value, &stored); err != nil {
				return nil // skip corrupted entries
			}
			scores = append(scores, scored{
				id:    string(key),
				score: cosineSimilarity(query, stored.Vector),
				entry: stored,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})
	if k > len(scores) {
		k = len(scores)
	}

	results := make([]port.VectorResult, k)
	for i := 0; i < k; i++ {
		score := scores[i].score
		results[i] = port.VectorResult{
			ID:       scores[i].id,
			Score:    &score,
			Text:     scores[i].entry.Text,
			Metadata: scores[i].entry.Metadata,
		}
	}
	return results, nil
}

func (s *Store) DropCollection(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.DeleteBucket(s.collection)
	})
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
