// Package chunker converts biomedical paper sections into
// token-bounded, semantically coherent, overlapping chunks for a
// fixed-context embedding model. Chunks are packed at sentence
// granularity; only sentences that alone exceed the token budget are
// split mid-sentence, on word boundaries.
package chunker

import (
	"strings"

	"go.uber.org/zap"

	"pmc-rag/internal/domain"
)

// BiomedicalChunker chunks papers section by section. Sections are
// never merged into one chunk.
type BiomedicalChunker struct {
	counter       domain.TokenCounter
	maxTokens     int
	overlapTokens int
	wordOverlap   int
	log           *zap.Logger
}

// NewBiomedicalChunker builds a chunker over the given token counter.
// Out-of-range parameters fall back to the PubMedBERT defaults.
func NewBiomedicalChunker(counter domain.TokenCounter, maxTokens, overlapTokens, wordOverlap int, log *zap.Logger) *BiomedicalChunker {
	if maxTokens <= 0 || maxTokens > HardTokenCeiling {
		maxTokens = DefaultMaxTokens
	}
	if overlapTokens < 0 {
		overlapTokens = DefaultOverlapTokens
	}
	if wordOverlap <= 0 {
		wordOverlap = DefaultWordOverlap
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BiomedicalChunker{
		counter:       counter,
		maxTokens:     maxTokens,
		overlapTokens: overlapTokens,
		wordOverlap:   wordOverlap,
		log:           log,
	}
}

// ChunkPaper chunks every section of the paper in input order. A
// section with an empty title or blank text yields no chunks but still
// consumes its section_order slot, so order values stay stable across
// skips.
func (c *BiomedicalChunker) ChunkPaper(paper domain.Paper) ([]domain.Chunk, error) {
	var all []domain.Chunk
	order := 0
	for _, sec := range paper.Sections {
		if sec.Title == "" || strings.TrimSpace(sec.Text) == "" {
			order++
			continue
		}
		meta := domain.ChunkMetadata{
			DocID:        paper.DocID,
			DocTitle:     paper.DocTitle,
			SourceURL:    paper.SourceURL,
			SectionTitle: sec.Title,
			SectionOrder: order,
		}
		all = append(all, c.ChunkSection(sec.Text, meta)...)
		order++
	}
	return all, nil
}

// ChunkSection chunks one section's text and attaches metadata. The
// ChunkIndex of meta is ignored; indices are assigned sequentially from
// 0. Chunks still over the hard ceiling after assembly get one final
// word-wise split; their pieces receive index parent*10+sub, which
// keeps relative order without renumbering siblings and assumes fewer
// than 10 pieces per oversized chunk.
func (c *BiomedicalChunker) ChunkSection(text string, meta domain.ChunkMetadata) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	asm := &assembler{
		counter:       c.counter,
		maxTokens:     c.maxTokens,
		overlapTokens: c.overlapTokens,
		wordOverlap:   c.wordOverlap,
		log:           c.log,
	}
	texts := asm.assemble(SplitSentences(text))

	var chunks []domain.Chunk
	for idx, t := range texts {
		if n := c.counter.Count(t); n > HardTokenCeiling {
			c.log.Warn("chunk over hard ceiling after assembly, applying safety-net split",
				zap.String("doc_id", meta.DocID),
				zap.String("section_title", meta.SectionTitle),
				zap.Int("chunk_index", idx),
				zap.Int("tokens", n))
			pieces := SplitLongSentence(c.counter, t, DefaultMaxTokens, c.wordOverlap)
			for j, p := range pieces {
				m := meta
				if len(pieces) == 1 {
					m.ChunkIndex = idx
				} else {
					m.ChunkIndex = idx*10 + j
				}
				chunks = append(chunks, domain.Chunk{Text: strings.TrimSpace(p), Metadata: m})
			}
			continue
		}
		m := meta
		m.ChunkIndex = idx
		chunks = append(chunks, domain.Chunk{Text: strings.TrimSpace(t), Metadata: m})
	}
	return chunks
}
