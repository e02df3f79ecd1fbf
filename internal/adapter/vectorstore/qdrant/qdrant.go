package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ShepAlderson/copilot-orchestra/internal/port"
)

// Store is a minimal REST client to a Qdrant collection. It assumes
// cosine distance.
type Store struct {
	baseURL    string
	collection string
	client     *http.Client
}

// New creates a client bound to one collection on the Qdrant server at
// addr (host:port).
func New(addr, collection string, timeout time.Duration) *Store {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Store{
		baseURL:    "http://" + addr,
		collection: collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection if it does not already exist.
func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}

	exists, _, err := s.collectionInfo(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionURL(), body, nil)
}

// Count returns the number of stored points. A missing collection is an
// error so that startup attach can distinguish cold stores.
func (s *Store) Count(ctx context.Context) (int, error) {
	exists, count, err := s.collectionInfo(ctx)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("collection %s does not exist", s.collection)
	}
	return count, nil
}

func (s *Store) Upsert(ctx context.Context, items []port.VectorItem) error {
	if len(items) == 0 {
		return nil
	}

	points := make([]map[string]any, len(items))
	for i, item := range items {
		payload := map[string]any{"text": item.Text}
		for k, v := range item.Metadata {
			payload[k] = v
		}
		points[i] = map[string]any{
			"id":      item.ID,
			"vector":  item.Vector,
			"payload": payload,
		}
	}

	body := map[string]any{"points": points}
	return s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil)
}

func (s *Store) Search(ctx context.Context, query []float32, k int) ([]port.VectorResult, error) {
	body := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
	}

	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", body, &resp); err != nil {
		return nil, err
	}

	results := make([]port.VectorResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		score := r.Score
		res := port.VectorResult{
			ID:       fmt.Sprint(r.ID),
			Score:    &score,
			Metadata: make(map[string]string),
		}
		for k, v := range r.Payload {
			str, ok := v.(string)
			if !ok {
				continue
			}
			if k == "text" {
				res.Text = str
			} else {
				res.Metadata[k] = str
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Store) DropCollection(ctx context.Context) error {
	return s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil)
}

// collectionInfo reports whether the collection exists and its point count.
func (s *Store) collectionInfo(ctx context.Context) (bool, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.collectionURL(), nil)
	if err != nil {
		return false, 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, 0, fmt.Errorf("qdrant unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, 0, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return false, 0, fmt.Errorf("qdrant GET %s failed: %s: %s", s.collection, resp.Status, string(body))
	}

	var info struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false, 0, fmt.Errorf("failed to parse collection info: %w", err)
	}
	return true, info.Result.PointsCount, nil
}

func (s *Store) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.baseURL, s.collection)
}

func (s *Store) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, url, resp.Status, string(data))
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
