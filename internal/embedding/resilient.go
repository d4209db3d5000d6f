package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"document-assistant/internal/config"
)

// ResilientOptions configures the Resilient decorator.
type ResilientOptions struct {
	Name          string
	Timeout       time.Duration
	BatchSize     int
	RatePerSecond float64
	Retry         config.RetryConfig
}

// Resilient wraps an Embedder with a per-call timeout, bounded exponential
// retry, a circuit breaker, an optional rate limit and batch splitting. Every
// provider failure it returns is a *ProviderError.
type Resilient struct {
	next      Embedder
	name      string
	timeout   time.Duration
	batchSize int
	retry     config.RetryConfig
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
}

func NewResilient(next Embedder, opts ResilientOptions) *Resilient {
	if opts.Name == "" {
		opts.Name = "embedding"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 64
	}
	if opts.Retry.InitialInterval <= 0 {
		opts.Retry.InitialInterval = 200 * time.Millisecond
	}
	if opts.Retry.MaxInterval <= 0 {
		opts.Retry.MaxInterval = 5 * time.Second
	}
	if opts.Retry.Multiplier < 1 {
		opts.Retry.Multiplier = 2
	}

	r := &Resilient{
		next:      next,
		name:      opts.Name,
		timeout:   opts.Timeout,
		batchSize: opts.BatchSize,
		retry:     opts.Retry,
	}
	if opts.RatePerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    opts.Name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 10
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
		},
	})
	return r
}

func (r *Resilient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := r.do(ctx, 1, func(ctx context.Context) ([][]float32, error) {
		v, err := r.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		return [][]float32{v}, nil
	})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedMany splits texts into batches; one failed batch fails the whole call.
func (r *Resilient) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	dim := 0
	for start := 0; start < len(texts); start += r.batchSize {
		batch := texts[start:min(start+r.batchSize, len(texts))]
		vectors, err := r.do(ctx, len(batch), func(ctx context.Context) ([][]float32, error) {
			return r.next.EmbedMany(ctx, batch)
		})
		if err != nil {
			return nil, err
		}
		if dim == 0 {
			dim = len(vectors[0])
		} else if len(vectors[0]) != dim {
			return nil, &ProviderError{
				Provider: r.name,
				Err:      fmt.Errorf("%w: batch at %d has dimension %d, expected %d", ErrMalformedResponse, start, len(vectors[0]), dim),
			}
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (r *Resilient) do(ctx context.Context, n int, call func(ctx context.Context) ([][]float32, error)) ([][]float32, error) {
	var result [][]float32
	attempts := 0

	operation := func() error {
		attempts++
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()

		v, err := r.breaker.Execute(func() (interface{}, error) {
			vectors, err := call(callCtx)
			if err != nil {
				return nil, err
			}
			if _, err := checkBatch(vectors, n); err != nil {
				return nil, err
			}
			return vectors, nil
		})
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			log.Warn().Err(err).Str("provider", r.name).Int("attempt", attempts).Msg("Embedding call failed")
			return err
		}
		result = v.([][]float32)
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.retry.InitialInterval
	b.MaxInterval = r.retry.MaxInterval
	b.Multiplier = r.retry.Multiplier
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(max(r.retry.MaxRetries, 0))), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		// a caller deadline is a provider timeout, a cancellation is not
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		if ctx.Err() != nil {
			return nil, &ProviderError{Provider: r.name, Attempts: attempts, Err: ctx.Err()}
		}
		var pe *ProviderError
		if errors.As(err, &pe) {
			return nil, &ProviderError{Provider: pe.Provider, Attempts: attempts, Permanent: pe.Permanent, Err: pe.Err}
		}
		return nil, &ProviderError{Provider: r.name, Attempts: attempts, Err: err}
	}
	return result, nil
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Permanent {
		return false
	}
	return true
}
