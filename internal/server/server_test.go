package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pmc-rag/internal/domain"
	"pmc-rag/internal/scraper"
)

type fakeService struct {
	chunks     map[string][]domain.Chunk
	ingested   []string
	answered   string
	searchErr  error
	ingestAllN int
}

func (f *fakeService) ProcessPaper(docID string) ([]domain.Chunk, error) {
	chunks, ok := f.chunks[docID]
	if !ok {
		return nil, fmt.Errorf("no paper %s", docID)
	}
	return chunks, nil
}

func (f *fakeService) IngestPaper(docID string) (int, error) {
	if _, ok := f.chunks[docID]; !ok {
		return 0, fmt.Errorf("no paper %s", docID)
	}
	f.ingested = append(f.ingested, docID)
	return len(f.chunks[docID]), nil
}

func (f *fakeService) IngestAll() (int, error) { return f.ingestAllN, nil }

func (f *fakeService) Search(query string, topK int) ([]domain.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return []domain.SearchResult{
		{Chunk: domain.Chunk{Text: "relevant excerpt"}, Score: 0.9},
	}, nil
}

func (f *fakeService) Answer(query string, topK int) (string, []domain.SearchResult, error) {
	results, err := f.Search(query, topK)
	if err != nil {
		return "", nil, err
	}
	return f.answered, results, nil
}

type fakeRepo struct {
	papers map[string]domain.Paper
}

func (r *fakeRepo) Save(p domain.Paper) error { r.papers[p.DocID] = p; return nil }
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

type fakeScraper struct {
	stats scraper.Stats
	err   error
	url   string
}

func (f *fakeScraper) ScrapeAndStore(searchURL string) (scraper.Stats, error) {
	f.url = searchURL
	return f.stats, f.err
}

func newTestServer(t *testing.T) (*Server, *fakeService, *fakeRepo, *fakeScraper) {
	t.Helper()
	svc := &fakeService{
		chunks: map[string][]domain.Chunk{
			"p1": {{Text: "chunk one"}, {Text: "chunk two"}},
		},
		answered:   "the answer",
		ingestAllN: 7,
	}
	repo := &fakeRepo{papers: map[string]domain.Paper{
		"p1": {DocID: "p1", DocTitle: "Trial outcomes", SourceURL: "https://example.org/p1", CreatedAt: "2025-11-02"},
	}}
	sc := &fakeScraper{stats: scraper.Stats{URLsCollected: 3, Stored: 2, Skipped: 1}}
	return New(svc, repo, sc, nil), svc, repo, sc
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("{}")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestListPapers(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/v1/data/pmc", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Count  int `json:"count"`
		Papers []struct {
			DocID    string `json:"doc_id"`
			DocTitle string `json:"doc_title"`
		} `json:"papers"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 || out.Papers[0].DocID != "p1" || out.Papers[0].DocTitle != "Trial outcomes" {
		t.Fatalf("unexpected listing: %+v", out)
	}
}

func TestProcessReturnsChunks(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/data/process", `{"doc_id":"p1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
}

func TestProcessUnknownDoc(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/data/process", `{"doc_id":"ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProcessMissingDocID(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/data/process", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProcessInvalidJSON(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/data/process", `{"doc_id":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestBatchProcess(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/data/batch-process", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		TotalChunks int `json:"total_chunks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TotalChunks != 2 {
		t.Fatalf("total_chunks = %d, want 2", out.TotalChunks)
	}
}

func TestIngestSingle(t *testing.T) {
	srv, svc, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/data/ingest", `{"doc_id":"p1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.ingested) != 1 || svc.ingested[0] != "p1" {
		t.Fatalf("ingested = %v", svc.ingested)
	}
}

func TestIngestAllWithoutDocID(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/data/ingest", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"chunks_indexed":7`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/nlp/search", `{"query":"  "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSearchReturnsResults(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/nlp/search", `{"query":"expression","top_k":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "relevant excerpt") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestSearchServiceError(t *testing.T) {
	srv, svc, _, _ := newTestServer(t)
	svc.searchErr = errors.New("store unreachable")
	rec := do(t, srv, http.MethodPost, "/api/v1/nlp/search", `{"query":"x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSearchBeforeIngestIs404(t *testing.T) {
	srv, svc, _, _ := newTestServer(t)
	svc.searchErr = domain.ErrNotIndexed
	rec := do(t, srv, http.MethodPost, "/api/v1/nlp/search", `{"query":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	rec = do(t, srv, http.MethodPost, "/api/v1/nlp/query", `{"query":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("query status = %d", rec.Code)
	}
}

func TestQueryReturnsAnswerAndExcerpts(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/nlp/query", `{"query":"what changed?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"the answer"`) || !strings.Contains(body, "relevant excerpt") {
		t.Fatalf("body = %s", body)
	}
	if !strings.Contains(body, `"chunks_used"`) {
		t.Fatalf("body missing chunks_used: %s", body)
	}
}

func TestScrapeRequiresURL(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/data/scrape", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestScrapeReportsStats(t *testing.T) {
	srv, _, _, sc := newTestServer(t)
	rec := do(t, srv, http.MethodPost, "/api/v1/data/scrape", `{"search_url":"https://pubmed.ncbi.nlm.nih.gov/?term=cancer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if sc.url != "https://pubmed.ncbi.nlm.nih.gov/?term=cancer" {
		t.Fatalf("scraper got url %q", sc.url)
	}
	if !strings.Contains(rec.Body.String(), `"stored":2`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestScrapeUnavailableWithoutScraper(t *testing.T) {
	srv := New(&fakeService{chunks: map[string][]domain.Chunk{}}, &fakeRepo{papers: map[string]domain.Paper{}}, nil, nil)
	rec := do(t, srv, http.MethodPost, "/api/v1/data/scrape", `{"search_url":"x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}
