package embedding

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoizes vectors by exact text. Misses of an EmbedMany call are
// fetched in a single batch.
type Cached struct {
	next  Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached returns next unchanged when size is not positive.
func NewCached(next Embedder, size int) (Embedder, error) {
	if size <= 0 {
		return next, nil
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: c}, nil
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return clone(v), nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, clone(v))
	return v, nil
}

func (c *Cached) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = clone(v)
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := c.next.EmbedMany(ctx, missing)
	if err != nil {
		return nil, err
	}
	if _, err := checkBatch(vectors, len(missing)); err != nil {
		return nil, &ProviderError{Provider: "cache", Err: err}
	}
	for j, v := range vectors {
		out[missingIdx[j]] = v
		c.cache.Add(missing[j], clone(v))
	}
	return out, nil
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
