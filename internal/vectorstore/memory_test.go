package vectorstore

import (
	"testing"

	"pmc-rag/internal/domain"
)

func chunkNamed(text string) domain.Chunk {
	return domain.Chunk{
		Text:     text,
		Metadata: domain.ChunkMetadata{DocID: "doc", SectionTitle: "Results"},
	}
}

func TestMemorySearchRanksByCosine(t *testing.T) {
	store := NewMemory()
	if err := store.Init(3); err != nil {
		t.Fatalf("Init: %v", err)
	}
	chunks := []domain.Chunk{chunkNamed("x axis"), chunkNamed("y axis"), chunkNamed("diagonal")}
	vectors := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0.7071, 0.7071, 0},
	}
	if err := store.Upsert(chunks, vectors); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, err := store.Search([]float64{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Chunk.Text != "x axis" || got[1].Chunk.Text != "diagonal" {
		t.Fatalf("unexpected ranking: %q then %q", got[0].Chunk.Text, got[1].Chunk.Text)
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("scores not descending: %v, %v", got[0].Score, got[1].Score)
	}
}

func TestMemoryUpsertRejectsMismatch(t *testing.T) {
	store := NewMemory()
	if err := store.Init(2); err != nil {
		t.Fatalf("Init: %v", err)
	}
	err := store.Upsert([]domain.Chunk{chunkNamed("a")}, [][]float64{{1, 0}, {0, 1}})
	if err == nil {
		t.Fatal("expected count mismatch error")
	}
	err = store.Upsert([]domain.Chunk{chunkNamed("a")}, [][]float64{{1, 0, 0}})
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestMemoryInitResetsData(t *testing.T) {
	store := NewMemory()
	if err := store.Init(2); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := store.Upsert([]domain.Chunk{chunkNamed("a")}, [][]float64{{1, 0}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Init(2); err != nil {
		t.Fatalf("re-Init: %v", err)
	}
	got, err := store.Search([]float64{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty store after Init, got %d results", len(got))
	}
}

func TestMemoryClear(t *testing.T) {
	store := NewMemory()
	if err := store.Init(2); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := store.Upsert([]domain.Chunk{chunkNamed("a")}, [][]float64{{1, 0}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err := store.Search([]float64{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no results after Clear, got %d", len(got))
	}
}
