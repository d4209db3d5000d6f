package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 150
	defaultTopK         = 3
)

type Config struct {
	RAG       RAGConfig       `yaml:"rag"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Server    ServerConfig    `yaml:"server"`
}

// RAGConfig controls chunking and retrieval
type RAGConfig struct {
	Chunker      string `yaml:"chunker"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopK         int    `yaml:"top_k"`
}

// RetryConfig bounds the attempts made against an external provider.
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
	Multiplier      float64       `yaml:"multiplier"`
}

type EmbeddingConfig struct {
	Provider      string        `yaml:"provider"`
	BaseURL       string        `yaml:"base_url"`
	Key           string        `yaml:"key"`
	Model         string        `yaml:"model"`
	Dimension     int           `yaml:"dimension"`
	BatchSize     int           `yaml:"batch_size"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	CacheSize     int           `yaml:"cache_size"`
	Retry         RetryConfig   `yaml:"retry"`
}

type IndexConfig struct {
	Backend string `yaml:"backend"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
	// drop the chunk table before creating it
	Reset    bool   `yaml:"reset"`
}

type LLMConfig struct {
	Provider string        `yaml:"provider"`
	BaseURL  string        `yaml:"base_url"`
	Key      string        `yaml:"key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	Retry    RetryConfig   `yaml:"retry"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr"`
	MaxSessions   int    `yaml:"max_sessions"`
	MaxUploadSize int64  `yaml:"max_upload_size"`
}

// Default returns the configuration used for every key the yaml omits.
func Default() *Config {
	retry := RetryConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
	return &Config{
		RAG: RAGConfig{
			Chunker:      "window",
			ChunkSize:    defaultChunkSize,
			ChunkOverlap: defaultChunkOverlap,
			TopK:         defaultTopK,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			BatchSize: 64,
			Timeout:   30 * time.Second,
			CacheSize: 256,
			Retry:     retry,
		},
		Index:    IndexConfig{Backend: "memory"},
		Database: DatabaseConfig{Driver: "pgdriver"},
		LLM: LLMConfig{
			Provider: "openai",
			Timeout:  60 * time.Second,
			Retry:    retry,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			MaxSessions:   100,
			MaxUploadSize: 20 << 20,
		},
	}
}

// LoadConfig reads the yaml file at path over the defaults, so keys set to
// zero stay zero. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	ApplyProviderDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyProviderDefaults fills the model, endpoint and dimension that depend
// on the chosen provider. API keys fall back to the environment.
func ApplyProviderDefaults(cfg *Config) {
	e := &cfg.Embedding
	switch e.Provider {
	case "openai":
		if e.Model == "" {
			e.Model = "text-embedding-3-small"
		}
		if e.Key == "" {
			e.Key = os.Getenv("OPENAI_API_KEY")
		}
	case "openrouter":
		if e.BaseURL == "" {
			e.BaseURL = "https://openrouter.ai/api/v1"
		}
		if e.Key == "" {
			e.Key = os.Getenv("OPENROUTER_API_KEY")
		}
	case "ollama":
		if e.BaseURL == "" {
			e.BaseURL = "http://localhost:11434"
		}
		if e.Model == "" {
			e.Model = "nomic-embed-text"
		}
	case "hash":
		if e.Dimension == 0 {
			e.Dimension = 256
		}
	}

	l := &cfg.LLM
	switch l.Provider {
	case "openai":
		if l.Model == "" {
			l.Model = "gpt-4o-mini"
		}
		if l.Key == "" {
			l.Key = os.Getenv("OPENAI_API_KEY")
		}
	case "openrouter":
		if l.BaseURL == "" {
			l.BaseURL = "https://openrouter.ai/api/v1"
		}
		if l.Key == "" {
			l.Key = os.Getenv("OPENROUTER_API_KEY")
		}
	case "ollama":
		if l.BaseURL == "" {
			l.BaseURL = "http://localhost:11434"
		}
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	switch c.RAG.Chunker {
	case "window", "recursive":
	default:
		return fmt.Errorf("unknown rag.chunker: %s", c.RAG.Chunker)
	}
	switch c.Index.Backend {
	case "memory", "chromem":
	case "pgvector":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for the pgvector backend")
		}
	default:
		return fmt.Errorf("unknown index.backend: %s", c.Index.Backend)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}
	if c.Embedding.Retry.MaxRetries < 0 {
		return fmt.Errorf("embedding.retry.max_retries must not be negative")
	}
	if c.LLM.Retry.MaxRetries < 0 {
		return fmt.Errorf("llm.retry.max_retries must not be negative")
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("embedding.cache_size must not be negative")
	}
	return nil
}
