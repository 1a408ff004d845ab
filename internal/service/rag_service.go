// Package service wires the pipeline together: papers are loaded from
// the repository, chunked, embedded, indexed, and queried.
package service

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pmc-rag/internal/domain"
)

// RAGServiceImpl implements domain.RAGService over pluggable
// collaborators. The generator is optional; Answer fails without one.
type RAGServiceImpl struct {
	repo      domain.PaperRepository
	chunker   domain.Chunker
	embedder  domain.Embedder
	store     domain.VectorStore
	generator domain.Generator
	log       *zap.Logger

	// chunks accumulates everything ingested so far; each ingest
	// re-prepares and re-embeds the whole set, since a growing TF-IDF
	// vocabulary changes the vector space.
	chunks []domain.Chunk
}

// NewRAGService builds the service. generator may be nil when only
// ingest and search are needed.
func NewRAGService(
	repo domain.PaperRepository,
	chunker domain.Chunker,
	embedder domain.Embedder,
	store domain.VectorStore,
	generator domain.Generator,
	log *zap.Logger,
) *RAGServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &RAGServiceImpl{
		repo:      repo,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		generator: generator,
		log:       log,
	}
}

// ProcessPaper loads a stored paper and chunks it without touching the
// index. It is the preview step for inspecting chunker output.
func (s *RAGServiceImpl) ProcessPaper(docID string) ([]domain.Chunk, error) {
	paper, err := s.repo.Load(docID)
	if err != nil {
		return nil, err
	}
	return s.chunker.ChunkPaper(paper)
}

// IngestPaper chunks a stored paper and rebuilds the index over all
// chunks ingested so far. It returns the number of chunks the paper
// contributed.
func (s *RAGServiceImpl) IngestPaper(docID string) (int, error) {
	paper, err := s.repo.Load(docID)
	if err != nil {
		return 0, err
	}
	chunks, err := s.chunker.ChunkPaper(paper)
	if err != nil {
		return 0, fmt.Errorf("chunk paper %s: %w", docID, err)
	}
	if len(chunks) == 0 {
		s.log.Warn("paper produced no chunks", zap.String("doc_id", docID))
		return 0, nil
	}

	// Re-ingesting a paper replaces its previous chunks instead of
	// duplicating them in the rebuilt index.
	kept := s.chunks[:0]
	for _, ch := range s.chunks {
		if ch.Metadata.DocID != docID {
			kept = append(kept, ch)
		}
	}
	s.chunks = append(kept, chunks...)
	if err := s.reindex(); err != nil {
		return 0, err
	}
	s.log.Info("paper ingested",
		zap.String("doc_id", docID),
		zap.String("title", paper.DocTitle),
		zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// IngestAll replaces the index with the chunks of every stored paper
// and returns the total chunk count.
func (s *RAGServiceImpl) IngestAll() (int, error) {
	ids, err := s.repo.ListDocIDs()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, errors.New("no stored papers to ingest")
	}

	var allChunks []domain.Chunk
	for _, id := range ids {
		paper, err := s.repo.Load(id)
		if err != nil {
			return 0, err
		}
		chunks, err := s.chunker.ChunkPaper(paper)
		if err != nil {
			return 0, fmt.Errorf("chunk paper %s: %w", id, err)
		}
		allChunks = append(allChunks, chunks...)
	}
	if len(allChunks) == 0 {
		return 0, errors.New("stored papers produced no chunks")
	}

	s.chunks = allChunks
	if err := s.reindex(); err != nil {
		return 0, err
	}
	s.log.Info("corpus ingested", zap.Int("papers", len(ids)), zap.Int("chunks", len(allChunks)))
	return len(allChunks), nil
}

// reindex re-prepares the embedder over the accumulated chunks,
// embeds them all, and rewrites the store.
//
// The store is initialized from the length of the first produced
// vector rather than Dimension(), since remote embedders only learn
// their dimension after the first embed.
func (s *RAGServiceImpl) reindex() error {
	texts := make([]string, len(s.chunks))
	for i, ch := range s.chunks {
		texts[i] = ch.Text
	}
	if err := s.embedder.Prepare(texts); err != nil {
		return fmt.Errorf("prepare embedder: %w", err)
	}
	vectors := make([][]float64, len(s.chunks))
	for i, ch := range s.chunks {
		vec, err := s.embedder.Embed(ch.Text)
		if err != nil {
			return fmt.Errorf("embed chunk %d: %w", i, err)
		}
		vectors[i] = vec
	}
	if err := s.store.Init(len(vectors[0])); err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	if err := s.store.Upsert(s.chunks, vectors); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}
	return nil
}

// Search embeds the query and returns the topK nearest chunks.
func (s *RAGServiceImpl) Search(query string, topK int) ([]domain.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}
	if len(s.chunks) == 0 {
		return nil, domain.ErrNotIndexed
	}
	vec, err := s.embedder.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.store.Search(vec, topK)
}

// Answer retrieves the topK chunks and asks the generator to answer
// from them alone. The retrieved excerpts are returned alongside the
// answer so callers can show provenance.
func (s *RAGServiceImpl) Answer(query string, topK int) (string, []domain.SearchResult, error) {
	if s.generator == nil {
		return "", nil, errors.New("no answer generator configured")
	}
	results, err := s.Search(query, topK)
	if err != nil {
		return "", nil, err
	}
	if len(results) == 0 {
		return "", nil, errors.New("no relevant excerpts found")
	}
	answer, err := s.generator.Generate(buildAnswerPrompt(query, results))
	if err != nil {
		return "", results, fmt.Errorf("generate answer: %w", err)
	}
	return answer, results, nil
}

// buildAnswerPrompt numbers the excerpts so the model can cite them.
func buildAnswerPrompt(query string, results []domain.SearchResult) string {
	excerpts := make([]string, len(results))
	for i, r := range results {
		excerpts[i] = fmt.Sprintf("[%d] %s", i+1, r.Chunk.Text)
	}
	var b strings.Builder
	b.WriteString("Answer the question based only on the following excerpts. ")
	b.WriteString("If the excerpts do not contain enough information, say so.\n\n")
	b.WriteString("Question: ")
	b.WriteString(query)
	b.WriteString("\n\nExcerpts:\n")
	b.WriteString(strings.Join(excerpts, "\n\n---\n\n"))
	return b.String()
}
