// Package vectorstore provides vector persistence and similarity
// search backends: an in-process store for development and a Qdrant
// REST client for deployments.
package vectorstore

import (
	"fmt"
	"sort"
	"sync"

	"pmc-rag/internal/domain"
)

// Memory keeps vectors in process memory and ranks by cosine
// similarity. Vectors are expected to be L2-normalized, so the dot
// product is the cosine.
type Memory struct {
	mu        sync.RWMutex
	dimension int
	chunks    []domain.Chunk
	vectors   [][]float64
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

// Init fixes the vector dimension and drops any existing data.
func (m *Memory) Init(dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimension = dimension
	m.chunks = nil
	m.vectors = nil
	return nil
}

// Upsert appends chunks with their vectors.
func (m *Memory) Upsert(chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, vec := range vectors {
		if len(vec) != m.dimension {
			return fmt.Errorf("vector %d has dimension %d, store expects %d", i, len(vec), m.dimension)
		}
	}
	m.chunks = append(m.chunks, chunks...)
	m.vectors = append(m.vectors, vectors...)
	return nil
}

// Search returns the topK most similar chunks to the query vector.
func (m *Memory) Search(vector []float64, topK int) ([]domain.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(vector) != m.dimension {
		return nil, fmt.Errorf("query vector has dimension %d, store expects %d", len(vector), m.dimension)
	}
	if topK <= 0 {
		topK = 5
	}
	results := make([]domain.SearchResult, 0, len(m.chunks))
	for i, chunk := range m.chunks {
		results = append(results, domain.SearchResult{
			Chunk: chunk,
			Score: dot(vector, m.vectors[i]),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Clear removes all stored vectors but keeps the dimension.
func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = nil
	m.vectors = nil
	return nil
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
