package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

// ExternalStore is the "external" vector-store backend: a REST client
// for a Qdrant-shaped server, grounded on
// poly-backend/src/memory/qdrant.rs's upsert_points_blocking/
// search_points calls — reimplemented over plain HTTP+JSON since no Go
// Qdrant client appears anywhere in the retrieved corpus.
type ExternalStore struct {
	baseURL    string
	collection string
	client     *http.Client
}

func NewExternalStore(baseURL, collection string) *ExternalStore {
	return &ExternalStore{
		baseURL:    baseURL,
		collection: collection,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type qdrantPoint struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

type qdrantUpsertRequest struct {
	Points []qdrantPoint `json:"points"`
}

func (s *ExternalStore) Upsert(ctx context.Context, chunks []types.Chunk) error {
	points := make([]qdrantPoint, len(chunks))
	for i, c := range chunks {
		points[i] = qdrantPoint{
			ID:     c.ID,
			Vector: c.Embedding,
			Payload: map[string]any{
				"text":               c.Text,
				"source_document_id": c.SourceDocumentID,
			},
		}
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points", s.collection),
		qdrantUpsertRequest{Points: points}, nil)
}

type qdrantSearchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

type qdrantSearchResponse struct {
	Result []struct {
		ID      string         `json:"id"`
		Score   float32        `json:"score"`
		Payload map[string]any `json:"payload"`
	} `json:"result"`
}

func (s *ExternalStore) Query(ctx context.Context, embedding []float32, topN int) ([]types.ScoredChunk, error) {
	var resp qdrantSearchResponse
	err := s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", s.collection),
		qdrantSearchRequest{Vector: embedding, Limit: topN, WithPayload: true}, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]types.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		text, _ := r.Payload["text"].(string)
		out = append(out, types.ScoredChunk{ID: r.ID, Score: r.Score, Payload: text})
	}
	return out, nil
}

func (s *ExternalStore) Clear(ctx context.Context) error {
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/delete", s.collection),
		map[string]any{"filter": map[string]any{}}, nil)
}

func (s *ExternalStore) Close() error { return nil }

func (s *ExternalStore) do(ctx context.Context, method, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return errs.Internal("encode qdrant request: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return errs.Internal("build qdrant request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return errs.ExternalStoreUnavailable("qdrant request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return errs.ExternalStoreUnavailable("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, string(b))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errs.Internal("decode qdrant response: %v", err)
		}
	}
	return nil
}
