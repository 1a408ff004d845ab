package domain

// ChunkMetadata identifies where a chunk came from. Section and paper
// titles live only here, never in the chunk text, so the text stays
// focused for semantic search while metadata supports filtering and
// keyword search on section names.
type ChunkMetadata struct {
	DocID        string `json:"doc_id"`
	DocTitle     string `json:"doc_title"`
	SourceURL    string `json:"source_url"`
	SectionTitle string `json:"section_title"`
	SectionOrder int    `json:"section_order"`
	ChunkIndex   int    `json:"chunk_index"`
}

// Chunk is a contiguous, token-bounded span of one section's text, the
// atomic unit handed to the embedding step.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// SearchResult is a retrieved chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}
