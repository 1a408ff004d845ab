package vectorstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"pmc-rag/internal/domain"
)

// Qdrant talks to a Qdrant server over its REST API. Points carry the
// chunk text and its metadata in the payload, so search results can be
// reconstructed without a second lookup.
type Qdrant struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

// QdrantConfig configures the Qdrant REST client.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewQdrant creates a client for the given server and collection.
func NewQdrant(cfg QdrantConfig) (*Qdrant, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "pmc_chunks"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Qdrant{
		baseURL:    cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type qdrantPayload struct {
	Text     string               `json:"text"`
	Metadata domain.ChunkMetadata `json:"metadata"`
}

// Init recreates the collection with the given vector dimension and
// cosine distance.
func (q *Qdrant) Init(dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	_ = q.do(http.MethodDelete, q.collectionURL(), nil, nil)
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := q.do(http.MethodPut, q.collectionURL(), body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", q.collection, err)
	}
	return nil
}

// Upsert writes the chunks and their vectors as points.
func (q *Qdrant) Upsert(chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, map[string]any{
			"id":      uuid.NewString(),
			"vector":  vectors[i],
			"payload": qdrantPayload{Text: chunk.Text, Metadata: chunk.Metadata},
		})
	}
	url := q.collectionURL() + "/points?wait=true"
	if err := q.do(http.MethodPut, url, map[string]any{"points": points}, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search runs a similarity query and maps hits back to chunks.
func (q *Qdrant) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	var out struct {
		Result []struct {
			Score   float64       `json:"score"`
			Payload qdrantPayload `json:"payload"`
		} `json:"result"`
	}
	url := q.collectionURL() + "/points/search"
	if err := q.do(http.MethodPost, url, body, &out); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(out.Result))
	for _, hit := range out.Result {
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{Text: hit.Payload.Text, Metadata: hit.Payload.Metadata},
			Score: hit.Score,
		})
	}
	return results, nil
}

// Clear drops the collection.
func (q *Qdrant) Clear() error {
	if err := q.do(http.MethodDelete, q.collectionURL(), nil, nil); err != nil {
		return fmt.Errorf("drop collection %s: %w", q.collection, err)
	}
	return nil
}

func (q *Qdrant) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", q.baseURL, q.collection)
}

func (q *Qdrant) do(method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s: %s", method, url, resp.Status, bytes.TrimSpace(payload))
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
