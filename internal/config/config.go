package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP API listen settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// TokenizerConfig selects the token counter implementation. The
// wordpiece type requires the vocab artifact of the embedding model;
// tiktoken is an approximate fallback for setups without it.
type TokenizerConfig struct {
	Type      string `yaml:"type"`
	VocabPath string `yaml:"vocab_path,omitempty"`
	Encoding  string `yaml:"encoding,omitempty"`
}

// ChunkerConfig configures how section text is split into chunks. All
// values are measured in tokens except WordOverlap, measured in words.
type ChunkerConfig struct {
	MaxTokens     int `yaml:"max_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
	WordOverlap   int `yaml:"word_overlap"`
}

// OpenAIConfig holds connection settings for an OpenAI-compatible
// endpoint, shared by the embedder and the answer generator.
type OpenAIConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string        `yaml:"type"`
	OpenAI *OpenAIConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// ScraperConfig configures the PMC article scraper.
type ScraperConfig struct {
	MaxArticles    int      `yaml:"max_articles"`
	TargetSections []string `yaml:"target_sections"`
	DelayMillis    int      `yaml:"delay_millis"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	PapersDir   string            `yaml:"papers_dir"`
	Tokenizer   TokenizerConfig   `yaml:"tokenizer"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Generator   *OpenAIConfig     `yaml:"generator,omitempty"`
	Scraper     ScraperConfig     `yaml:"scraper"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/pmc-rag/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pmc-rag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Server:    ServerConfig{Addr: ":8090"},
		PapersDir: "pmc_articles",
		Tokenizer: TokenizerConfig{
			Type:      "wordpiece",
			VocabPath: "models/pubmedbert/vocab.txt",
		},
		Chunker: ChunkerConfig{
			MaxTokens:     480,
			OverlapTokens: 80,
			WordOverlap:   10,
		},
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Scraper: ScraperConfig{
			MaxArticles:    50,
			TargetSections: []string{"Results", "Discussion"},
			DelayMillis:    1000,
		},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8090"
	}
	if cfg.PapersDir == "" {
		cfg.PapersDir = "pmc_articles"
	}
	if cfg.Tokenizer.Type == "" {
		cfg.Tokenizer.Type = "wordpiece"
	}
	if cfg.Tokenizer.Type == "wordpiece" && cfg.Tokenizer.VocabPath == "" {
		cfg.Tokenizer.VocabPath = "models/pubmedbert/vocab.txt"
	}
	if cfg.Chunker.MaxTokens == 0 {
		cfg.Chunker.MaxTokens = 480
	}
	if cfg.Chunker.OverlapTokens == 0 {
		cfg.Chunker.OverlapTokens = 80
	}
	if cfg.Chunker.WordOverlap == 0 {
		cfg.Chunker.WordOverlap = 10
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		applyOpenAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small")
	}
	if cfg.Generator != nil {
		applyOpenAIDefaults(cfg.Generator, "gpt-4o-mini")
	}
	if cfg.Scraper.MaxArticles == 0 {
		cfg.Scraper.MaxArticles = 50
	}
	if len(cfg.Scraper.TargetSections) == 0 {
		cfg.Scraper.TargetSections = []string{"Results", "Discussion"}
	}
	if cfg.Scraper.DelayMillis == 0 {
		cfg.Scraper.DelayMillis = 1000
	}
}

func applyOpenAIDefaults(cfg *OpenAIConfig, model string) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Model == "" {
		cfg.Model = model
	}
	if cfg.TimeoutSecs == 0 {
		cfg.TimeoutSecs = 30
	}
}
