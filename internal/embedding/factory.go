package embedding

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"document-assistant/internal/config"
)

// New builds the configured provider wrapped with retry, timeout and cache.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var base Embedder
	var err error
	switch cfg.Provider {
	case "openai":
		base, err = NewOpenAIEmbedder(cfg)
	case "openrouter":
		base, err = NewOpenRouterEmbedder(cfg)
	case "ollama":
		base, err = NewOllamaEmbedder(cfg)
	case "hash":
		base = NewHashEmbedder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("Embedding provider ready")

	resilient := NewResilient(base, ResilientOptions{
		Name:          cfg.Provider,
		Timeout:       cfg.Timeout,
		BatchSize:     cfg.BatchSize,
		RatePerSecond: cfg.RatePerSecond,
		Retry:         cfg.Retry,
	})
	return NewCached(resilient, cfg.CacheSize)
}
