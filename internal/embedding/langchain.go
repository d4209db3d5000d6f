package embedding

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-assistant/internal/config"
)

// LangchainEmbedder adapts a langchaingo embedder.
type LangchainEmbedder struct {
	provider string
	embedder embeddings.Embedder
}

func NewLangchainEmbedder(provider string, embedder embeddings.Embedder) *LangchainEmbedder {
	return &LangchainEmbedder{provider: provider, embedder: embedder}
}

// NewOpenRouterEmbedder creates an embedder for any OpenAI-compatible endpoint
func NewOpenRouterEmbedder(cfg config.EmbeddingConfig) (*LangchainEmbedder, error) {
	log.Debug().Str("base_url", cfg.BaseURL).Str("embedding_model", cfg.Model).Msg("Creating openai-compatible embedder")

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(cfg.BatchSize))
	if err != nil {
		return nil, err
	}
	return NewLangchainEmbedder("openrouter", embedder), nil
}

// new ollama embedder
func NewOllamaEmbedder(cfg config.EmbeddingConfig) (*LangchainEmbedder, error) {
	log.Debug().Str("base_url", cfg.BaseURL).Str("embedding_model", cfg.Model).Msg("Creating ollama embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(cfg.BaseURL),
		ollama.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(cfg.BatchSize))
	if err != nil {
		return nil, err
	}
	return NewLangchainEmbedder("ollama", embedder), nil
}

func (e *LangchainEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, &ProviderError{Provider: e.provider, Err: err}
	}
	return v, nil
}

func (e *LangchainEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, &ProviderError{Provider: e.provider, Err: err}
	}
	return vectors, nil
}
