package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"pmc-rag/internal/domain"
	"pmc-rag/internal/vectorstore"
)

// fakeRepo serves papers from a map.
type fakeRepo struct {
	papers map[string]domain.Paper
}

func (r *fakeRepo) Save(p domain.Paper) error {
	r.papers[p.DocID] = p
	return nil
}

func (r *fakeRepo) Load(docID string) (domain.Paper, error) {
	p, ok := r.papers[docID]
	if !ok {
		return domain.Paper{}, fmt.Errorf("no paper %s", docID)
	}
	return p, nil
}

func (r *fakeRepo) ListDocIDs() ([]string, error) {
	ids := make([]string, 0, len(r.papers))
	for id := range r.papers {
		ids = append(ids, id)
	}
	return ids, nil
}

// sentenceChunker emits one chunk per sentence, ignoring budgets.
type sentenceChunker struct{}

func (sentenceChunker) ChunkPaper(paper domain.Paper) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, sec := range paper.Sections {
		for i, sent := range strings.Split(sec.Text, ". ") {
			sent = strings.TrimSpace(sent)
			if sent == "" {
				continue
			}
			chunks = append(chunks, domain.Chunk{
				Text: sent,
				Metadata: domain.ChunkMetadata{
					DocID:        paper.DocID,
					DocTitle:     paper.DocTitle,
					SectionTitle: sec.Title,
					ChunkIndex:   i,
				},
			})
		}
	}
	return chunks, nil
}

// hashEmbedder produces deterministic 4-dim vectors without a corpus.
type hashEmbedder struct{ prepared bool }

func (e *hashEmbedder) Name() string { return "hash" }
func (e *hashEmbedder) Prepare(corpus []string) error {
	e.prepared = true
	return nil
}
func (e *hashEmbedder) Dimension() int { return 4 }
func (e *hashEmbedder) Embed(text string) ([]float64, error) {
	vec := make([]float64, 4)
	for i, r := range text {
		vec[i%4] += float64(r % 13)
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

// scriptedGenerator records the prompt it was given.
type scriptedGenerator struct {
	prompt string
	reply  string
	err    error
}

func (g *scriptedGenerator) Generate(prompt string) (string, error) {
	g.prompt = prompt
	return g.reply, g.err
}

func testPaper(id string) domain.Paper {
	return domain.Paper{
		DocID:    id,
		DocTitle: "Trial outcomes",
		Sections: []domain.Section{
			{Title: "Results", Order: 0, Text: "Expression increased twofold. The p value was small."},
			{Title: "Discussion", Order: 1, Text: "The effect replicates prior work."},
		},
	}
}

func newTestService(t *testing.T, gen domain.Generator) (*RAGServiceImpl, *fakeRepo) {
	t.Helper()
	repo := &fakeRepo{papers: map[string]domain.Paper{}}
	svc := NewRAGService(repo, sentenceChunker{}, &hashEmbedder{}, vectorstore.NewMemory(), gen, nil)
	return svc, repo
}

func TestIngestPaperIndexesChunks(t *testing.T) {
	svc, repo := newTestService(t, nil)
	repo.papers["p1"] = testPaper("p1")

	n, err := svc.IngestPaper("p1")
	if err != nil {
		t.Fatalf("IngestPaper: %v", err)
	}
	if n != 3 {
		t.Fatalf("ingested %d chunks, want 3", n)
	}
	results, err := svc.Search("expression increased", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Chunk.Metadata.DocID != "p1" {
		t.Fatalf("result carries wrong doc: %+v", results[0].Chunk.Metadata)
	}
}

func TestIngestPaperAccumulatesAcrossCalls(t *testing.T) {
	svc, repo := newTestService(t, nil)
	repo.papers["p1"] = testPaper("p1")
	repo.papers["p2"] = testPaper("p2")

	if _, err := svc.IngestPaper("p1"); err != nil {
		t.Fatalf("IngestPaper p1: %v", err)
	}
	if _, err := svc.IngestPaper("p2"); err != nil {
		t.Fatalf("IngestPaper p2: %v", err)
	}
	results, err := svc.Search("expression increased", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	docs := map[string]bool{}
	for _, r := range results {
		docs[r.Chunk.Metadata.DocID] = true
	}
	if !docs["p1"] || !docs["p2"] {
		t.Fatalf("index lost a paper after the second ingest: %v", docs)
	}
}

func TestIngestPaperTwiceDoesNotDuplicate(t *testing.T) {
	svc, repo := newTestService(t, nil)
	repo.papers["p1"] = testPaper("p1")

	if _, err := svc.IngestPaper("p1"); err != nil {
		t.Fatalf("first IngestPaper: %v", err)
	}
	if _, err := svc.IngestPaper("p1"); err != nil {
		t.Fatalf("second IngestPaper: %v", err)
	}
	results, err := svc.Search("expression increased", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("index holds %d chunks after re-ingest, want 3", len(results))
	}
	seen := map[string]int{}
	for _, r := range results {
		seen[r.Chunk.Text]++
	}
	for text, n := range seen {
		if n > 1 {
			t.Fatalf("chunk %q indexed %d times", text, n)
		}
	}
}

func TestIngestPaperUnknownDoc(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.IngestPaper("ghost"); err == nil {
		t.Fatal("expected an error for an unknown doc_id")
	}
}

func TestIngestAllCoversEveryPaper(t *testing.T) {
	svc, repo := newTestService(t, nil)
	repo.papers["p1"] = testPaper("p1")
	repo.papers["p2"] = testPaper("p2")

	n, err := svc.IngestAll()
	if err != nil {
		t.Fatalf("IngestAll: %v", err)
	}
	if n != 6 {
		t.Fatalf("ingested %d chunks, want 6", n)
	}
}

func TestIngestAllEmptyRepo(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.IngestAll(); err == nil {
		t.Fatal("expected an error with no stored papers")
	}
}

func TestProcessPaperDoesNotIndex(t *testing.T) {
	svc, repo := newTestService(t, nil)
	repo.papers["p1"] = testPaper("p1")

	chunks, err := svc.ProcessPaper("p1")
	if err != nil {
		t.Fatalf("ProcessPaper: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if _, err := svc.Search("expression", 1); err == nil {
		t.Fatal("expected search to fail before any ingest")
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if _, err := svc.Search("   ", 5); err == nil {
		t.Fatal("expected an error for a blank query")
	}
}

func TestAnswerBuildsNumberedPrompt(t *testing.T) {
	gen := &scriptedGenerator{reply: "Expression increased twofold [1]."}
	svc, repo := newTestService(t, gen)
	repo.papers["p1"] = testPaper("p1")
	if _, err := svc.IngestPaper("p1"); err != nil {
		t.Fatalf("IngestPaper: %v", err)
	}

	answer, results, err := svc.Answer("what happened to expression?", 2)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if answer != gen.reply {
		t.Fatalf("answer = %q", answer)
	}
	if len(results) != 2 {
		t.Fatalf("got %d excerpts, want 2", len(results))
	}
	if !strings.Contains(gen.prompt, "Question: what happened to expression?") {
		t.Fatalf("prompt missing question: %q", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "[1] ") || !strings.Contains(gen.prompt, "[2] ") {
		t.Fatalf("prompt excerpts not numbered: %q", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "\n\n---\n\n") {
		t.Fatalf("prompt excerpts not separated: %q", gen.prompt)
	}
}

func TestAnswerWithoutGenerator(t *testing.T) {
	svc, repo := newTestService(t, nil)
	repo.papers["p1"] = testPaper("p1")
	if _, err := svc.IngestPaper("p1"); err != nil {
		t.Fatalf("IngestPaper: %v", err)
	}
	if _, _, err := svc.Answer("anything", 2); err == nil {
		t.Fatal("expected an error with no generator configured")
	}
}

func TestAnswerPropagatesGeneratorError(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("model offline")}
	svc, repo := newTestService(t, gen)
	repo.papers["p1"] = testPaper("p1")
	if _, err := svc.IngestPaper("p1"); err != nil {
		t.Fatalf("IngestPaper: %v", err)
	}
	_, results, err := svc.Answer("anything", 2)
	if err == nil {
		t.Fatal("expected generator error to propagate")
	}
	if len(results) == 0 {
		t.Fatal("expected retrieved excerpts alongside the error")
	}
}
