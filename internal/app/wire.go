// Package app assembles pipeline components from configuration. The
// command binaries share this wiring.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"pmc-rag/internal/chunker"
	"pmc-rag/internal/config"
	"pmc-rag/internal/domain"
	"pmc-rag/internal/embedding"
	"pmc-rag/internal/generation"
	"pmc-rag/internal/repository"
	"pmc-rag/internal/scraper"
	"pmc-rag/internal/service"
	"pmc-rag/internal/tokencount"
	"pmc-rag/internal/vectorstore"
)

// NewLogger builds a zap logger; debug switches to the development
// encoder with debug-level output.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// BuildTokenCounter selects the token counter from config.
func BuildTokenCounter(cfg config.TokenizerConfig) (domain.TokenCounter, error) {
	switch cfg.Type {
	case "wordpiece", "":
		return tokencount.Shared(cfg.VocabPath)
	case "tiktoken":
		return tokencount.NewTiktokenCounter(cfg.Encoding)
	default:
		return nil, fmt.Errorf("unknown tokenizer: %s", cfg.Type)
	}
}

// BuildChunker wires the chunker with its token counter.
func BuildChunker(cfg *config.AppConfig, log *zap.Logger) (domain.Chunker, error) {
	counter, err := BuildTokenCounter(cfg.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("token counter init: %w", err)
	}
	return chunker.NewBiomedicalChunker(counter, cfg.Chunker.MaxTokens, cfg.Chunker.OverlapTokens, cfg.Chunker.WordOverlap, log), nil
}

// BuildEmbedder selects the embedder from config.
func BuildEmbedder(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return embedding.NewTFIDF(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return embedding.NewOpenAIClient(embedding.OpenAIConfig{
			BaseURL:   cfg.OpenAI.BaseURL,
			APIKeyEnv: cfg.OpenAI.APIKeyEnv,
			Model:     cfg.OpenAI.Model,
			Timeout:   time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}

// BuildVectorStore selects the vector store from config.
func BuildVectorStore(cfg config.VectorStoreConfig) (domain.VectorStore, error) {
	switch cfg.Type {
	case "memory", "":
		return vectorstore.NewMemory(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, fmt.Errorf("qdrant config missing")
		}
		return vectorstore.NewQdrant(vectorstore.QdrantConfig{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}

// BuildGenerator falls back to the offline extractive answerer when no
// chat endpoint is configured, so the query path works without a key.
func BuildGenerator(cfg *config.OpenAIConfig) (domain.Generator, error) {
	if cfg == nil {
		return generation.NewExtractive(0), nil
	}
	return generation.NewOpenAIClient(generation.OpenAIConfig{
		BaseURL:   cfg.BaseURL,
		APIKeyEnv: cfg.APIKeyEnv,
		Model:     cfg.Model,
		Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
	})
}

// BuildRepository opens the papers folder.
func BuildRepository(cfg *config.AppConfig) (domain.PaperRepository, error) {
	return repository.NewJSONFolder(cfg.PapersDir)
}

// BuildScraper wires the PMC scraper over the repository.
func BuildScraper(cfg *config.AppConfig, repo domain.PaperRepository, log *zap.Logger) *scraper.PMCScraper {
	return scraper.NewPMCScraper(repo, scraper.Config{
		MaxArticles:    cfg.Scraper.MaxArticles,
		TargetSections: cfg.Scraper.TargetSections,
		Delay:          time.Duration(cfg.Scraper.DelayMillis) * time.Millisecond,
	}, log)
}

// BuildService assembles the full pipeline.
func BuildService(cfg *config.AppConfig, repo domain.PaperRepository, log *zap.Logger) (*service.RAGServiceImpl, error) {
	ch, err := BuildChunker(cfg, log)
	if err != nil {
		return nil, err
	}
	emb, err := BuildEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	store, err := BuildVectorStore(cfg.VectorStore)
	if err != nil {
		return nil, err
	}
	gen, err := BuildGenerator(cfg.Generator)
	if err != nil {
		return nil, err
	}
	return service.NewRAGService(repo, ch, emb, store, gen, log), nil
}
