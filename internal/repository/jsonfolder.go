// Package repository persists scraped papers as JSON files, one file
// per paper, named <doc_id>.json.
package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pmc-rag/internal/domain"
)

// JSONFolder stores papers in a folder using the schema
//
//	{"doc_id", "doc_title", "source_url", "created_at", "sections": [...]}
type JSONFolder struct {
	folder string
}

// NewJSONFolder creates the folder if needed and returns a repository
// over it.
func NewJSONFolder(folder string) (*JSONFolder, error) {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("create papers folder %s: %w", folder, err)
	}
	return &JSONFolder{folder: folder}, nil
}

// Save writes the paper to <doc_id>.json, replacing any previous copy.
func (r *JSONFolder) Save(paper domain.Paper) error {
	if paper.DocID == "" {
		return fmt.Errorf("paper has no doc_id")
	}
	data, err := json.MarshalIndent(paper, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path(paper.DocID), data, 0o644)
}

// Load reads the paper stored under docID.
func (r *JSONFolder) Load(docID string) (domain.Paper, error) {
	data, err := os.ReadFile(r.path(docID))
	if err != nil {
		return domain.Paper{}, fmt.Errorf("load paper %s: %w", docID, err)
	}
	var paper domain.Paper
	if err := json.Unmarshal(data, &paper); err != nil {
		return domain.Paper{}, fmt.Errorf("decode paper %s: %w", docID, err)
	}
	return paper, nil
}

// ListDocIDs returns the sorted doc_ids of all stored papers.
func (r *JSONFolder) ListDocIDs() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(r.folder, "*.json"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(m), ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *JSONFolder) path(docID string) string {
	return filepath.Join(r.folder, docID+".json")
}
