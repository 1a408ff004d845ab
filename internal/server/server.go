// Package server exposes the pipeline over a JSON HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"pmc-rag/internal/domain"
	"pmc-rag/internal/scraper"
)

// Scraper is the subset of the PMC scraper the server needs.
type Scraper interface {
	ScrapeAndStore(searchURL string) (scraper.Stats, error)
}

// Server routes API requests to the service, repository, and scraper.
type Server struct {
	svc     domain.RAGService
	repo    domain.PaperRepository
	scraper Scraper
	log     *zap.Logger
	mux     *http.ServeMux
}

// New builds the server and registers its routes. scraper may be nil,
// in which case the scrape endpoint reports it as unavailable.
func New(svc domain.RAGService, repo domain.PaperRepository, sc Scraper, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{svc: svc, repo: repo, scraper: sc, log: log, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/data/pmc", s.handleListPapers)
	s.mux.HandleFunc("POST /api/v1/data/scrape", s.handleScrape)
	s.mux.HandleFunc("POST /api/v1/data/process", s.handleProcess)
	s.mux.HandleFunc("POST /api/v1/data/batch-process", s.handleBatchProcess)
	s.mux.HandleFunc("POST /api/v1/data/ingest", s.handleIngest)
	s.mux.HandleFunc("POST /api/v1/nlp/search", s.handleSearch)
	s.mux.HandleFunc("POST /api/v1/nlp/query", s.handleQuery)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe runs the server on addr until it fails.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("http api listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.repo.ListDocIDs()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	papers := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		paper, err := s.repo.Load(id)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		papers = append(papers, map[string]string{
			"doc_id":     paper.DocID,
			"doc_title":  paper.DocTitle,
			"source_url": paper.SourceURL,
			"created_at": paper.CreatedAt,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"count": len(papers), "papers": papers})
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if s.scraper == nil {
		s.writeError(w, http.StatusServiceUnavailable, errMessage("scraper not configured"))
		return
	}
	var req struct {
		SearchURL string `json:"search_url"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SearchURL) == "" {
		s.writeError(w, http.StatusBadRequest, errMessage("search_url is required"))
		return
	}
	stats, err := s.scraper.ScrapeAndStore(req.SearchURL)
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocID string `json:"doc_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.DocID == "" {
		s.writeError(w, http.StatusBadRequest, errMessage("doc_id is required"))
		return
	}
	chunks, err := s.svc.ProcessPaper(req.DocID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": req.DocID,
		"count":  len(chunks),
		"chunks": chunks,
	})
}

func (s *Server) handleBatchProcess(w http.ResponseWriter, r *http.Request) {
	ids, err := s.repo.ListDocIDs()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	type docResult struct {
		DocID  string `json:"doc_id"`
		Chunks int    `json:"chunks"`
		Error  string `json:"error,omitempty"`
	}
	results := make([]docResult, 0, len(ids))
	total := 0
	for _, id := range ids {
		chunks, err := s.svc.ProcessPaper(id)
		if err != nil {
			results = append(results, docResult{DocID: id, Error: err.Error()})
			continue
		}
		total += len(chunks)
		results = append(results, docResult{DocID: id, Chunks: len(chunks)})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"total_chunks": total, "documents": results})
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocID string `json:"doc_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	if req.DocID == "" {
		n, err := s.svc.IngestAll()
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"chunks_indexed": n})
		return
	}
	n, err := s.svc.IngestPaper(req.DocID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"doc_id": req.DocID, "chunks_indexed": n})
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, errMessage("query is required"))
		return
	}
	results, err := s.svc.Search(req.Query, req.TopK)
	if err != nil {
		s.writeError(w, searchStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"count": len(results), "chunks": results})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, errMessage("query is required"))
		return
	}
	answer, results, err := s.svc.Answer(req.Query, req.TopK)
	if err != nil {
		s.writeError(w, searchStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"answer": answer, "chunks_used": results})
}

// searchStatus maps a not-yet-indexed corpus to 404; anything else is a
// server-side failure.
func searchStatus(err error) int {
	if errors.Is(err, domain.ErrNotIndexed) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, errMessage("invalid JSON body"))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("write response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

type errMessage string

func (e errMessage) Error() string { return string(e) }
