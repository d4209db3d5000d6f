package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Embedder maps text to fixed-dimension vectors compared by cosine distance.
// EmbedMany preserves order and returns exactly one vector per input.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
}

// ErrMalformedResponse marks provider output that breaks the Embedder contract.
var ErrMalformedResponse = errors.New("malformed embedding response")

// ProviderError is a failure of the external embedding provider: network,
// timeout, rate limit or malformed output. Permanent errors are not retried.
type ProviderError struct {
	Provider  string
	Attempts  int
	Permanent bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("embedding provider %s failed after %d attempts: %v", e.Provider, e.Attempts, e.Err)
	}
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsProviderError reports whether err came from the embedding provider.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// checkBatch validates provider output for a batch of n texts and returns
// the common dimension.
func checkBatch(vectors [][]float32, n int) (int, error) {
	if len(vectors) != n {
		return 0, fmt.Errorf("%w: %d vectors for %d texts", ErrMalformedResponse, len(vectors), n)
	}
	dim := 0
	for i, v := range vectors {
		if len(v) == 0 {
			return 0, fmt.Errorf("%w: empty vector at %d", ErrMalformedResponse, i)
		}
		if dim == 0 {
			dim = len(v)
		} else if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has dimension %d, expected %d", ErrMalformedResponse, i, len(v), dim)
		}
	}
	return dim, nil
}
