package repository

import (
	"reflect"
	"testing"

	"pmc-rag/internal/domain"
)

func samplePaper(id string) domain.Paper {
	return domain.Paper{
		DocID:     id,
		DocTitle:  "Outcomes of a randomized trial",
		SourceURL: "https://pmc.ncbi.nlm.nih.gov/articles/PMC0000001/",
		CreatedAt: "2025-11-02",
		Sections: []domain.Section{
			{Title: "Results", Order: 0, Text: "The p value was 0.05."},
			{Title: "Discussion", Order: 1, Text: "The trend is clear."},
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	repo, err := NewJSONFolder(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONFolder: %v", err)
	}
	want := samplePaper("paper-a")
	if err := repo.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Load("paper-a")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}
}

func TestSaveRequiresDocID(t *testing.T) {
	repo, err := NewJSONFolder(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONFolder: %v", err)
	}
	if err := repo.Save(domain.Paper{}); err == nil {
		t.Fatal("expected an error for a paper without doc_id")
	}
}

func TestListDocIDsSorted(t *testing.T) {
	repo, err := NewJSONFolder(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONFolder: %v", err)
	}
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := repo.Save(samplePaper(id)); err != nil {
			t.Fatalf("Save %s: %v", id, err)
		}
	}
	got, err := repo.ListDocIDs()
	if err != nil {
		t.Fatalf("ListDocIDs: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ListDocIDs = %v, want %v", got, want)
	}
}

func TestLoadMissingPaper(t *testing.T) {
	repo, err := NewJSONFolder(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONFolder: %v", err)
	}
	if _, err := repo.Load("ghost"); err == nil {
		t.Fatal("expected an error for a missing paper")
	}
}
