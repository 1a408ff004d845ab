package domain

import "errors"

// ErrNotIndexed is returned by search operations before any paper has
// been ingested.
var ErrNotIndexed = errors.New("no papers ingested yet")

// TokenCounter reports the subword token length of arbitrary text using
// the same vocabulary as the downstream embedding model. Empty or
// whitespace-only text counts as 0. Implementations must be safe for
// concurrent use and deterministic for identical input.
type TokenCounter interface {
	Count(text string) int
}

// Chunker splits a paper into retrieval-ready chunks.
type Chunker interface {
	ChunkPaper(paper Paper) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(text string) ([]float64, error)
}

// VectorStore persists chunk vectors and supports similarity search.
type VectorStore interface {
	Init(dimension int) error
	Upsert(chunks []Chunk, vectors [][]float64) error
	Search(vector []float64, topK int) ([]SearchResult, error)
	Clear() error
}

// Generator produces a natural-language answer from a prompt.
type Generator interface {
	Generate(prompt string) (string, error)
}

// PaperRepository persists scraped papers and loads them back for
// processing.
type PaperRepository interface {
	Save(paper Paper) error
	Load(docID string) (Paper, error)
	ListDocIDs() ([]string, error)
}

// RAGService defines the operations exposed by the application core.
type RAGService interface {
	ProcessPaper(docID string) ([]Chunk, error)
	IngestPaper(docID string) (int, error)
	IngestAll() (int, error)
	Search(query string, topK int) ([]SearchResult, error)
	Answer(query string, topK int) (string, []SearchResult, error)
}
