package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-assistant/internal/config"
)

var (
	// ErrGeneration wraps every failed Generate call.
	ErrGeneration = errors.New("generation failed")
	// ErrEmptyCompletion is returned when the model answers with no text.
	ErrEmptyCompletion = errors.New("llm returned an empty completion")
)

// Generator turns a rendered prompt into an answer.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client calls a langchaingo model with a per-call timeout and retry.
type Client struct {
	llm     llms.Model
	model   string
	timeout time.Duration
	retry   config.RetryConfig
}

// New creates the model named by cfg.Provider ("openai" for any
// OpenAI-compatible endpoint, or "ollama").
func New(cfg config.LLMConfig) (*Client, error) {
	log.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Str("base_url", cfg.BaseURL).Msg("Creating llm client")

	var llm llms.Model
	var err error
	switch cfg.Provider {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	case "ollama":
		llm, err = ollama.New(ollama.WithServerURL(cfg.BaseURL), ollama.WithModel(cfg.Model))
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s llm: %w", cfg.Provider, err)
	}
	return NewClient(llm, cfg), nil
}

func NewClient(llm llms.Model, cfg config.LLMConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{llm: llm, model: cfg.Model, timeout: cfg.Timeout, retry: cfg.Retry}
}

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var answer string
	attempts := 0
	operation := func() error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		out, err := llms.GenerateFromSinglePrompt(callCtx, c.llm, prompt, llms.WithTemperature(0.2))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return backoff.Permanent(err)
			}
			log.Warn().Err(err).Int("attempt", attempts).Msg("Generation failed")
			return err
		}
		if strings.TrimSpace(out) == "" {
			return ErrEmptyCompletion
		}
		answer = out
		return nil
	}

	b := backoff.NewExponentialBackOff()
	if c.retry.InitialInterval > 0 {
		b.InitialInterval = c.retry.InitialInterval
	}
	if c.retry.MaxInterval > 0 {
		b.MaxInterval = c.retry.MaxInterval
	}
	if c.retry.Multiplier >= 1 {
		b.Multiplier = c.retry.Multiplier
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(c.retry.MaxRetries, 0))), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("%w: %s after %d attempts: %w", ErrGeneration, c.model, attempts, err)
	}
	return answer, nil
}
