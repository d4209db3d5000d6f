package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrEmptyIndex is returned by Query when no chunks have been built.
var ErrEmptyIndex = errors.New("vector index is empty")

// CountMismatchError reports a Build call whose chunks and embeddings differ in length.
type CountMismatchError struct {
	Chunks     int
	Embeddings int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("count mismatch: %d chunks, %d embeddings", e.Chunks, e.Embeddings)
}

// DimensionMismatchError reports a vector whose length differs from the index dimension.
type DimensionMismatchError struct {
	Position int
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	if e.Position < 0 {
		return fmt.Sprintf("dimension mismatch: query has %d, index has %d", e.Got, e.Expected)
	}
	return fmt.Sprintf("dimension mismatch at %d: expected %d, got %d", e.Position, e.Expected, e.Got)
}

// Match is one retrieved chunk. Position is its index in build order.
type Match struct {
	Position int
	Text     string
	Distance float64
}

// Index stores chunk embeddings and answers nearest-neighbour queries by
// cosine distance. Build replaces all contents; there is no partial update.
type Index interface {
	Build(ctx context.Context, chunks []string, embeddings [][]float32) error
	Query(ctx context.Context, embedding []float32, k int) ([]Match, error)
	Len() int
	Close(ctx context.Context) error
}

// Factory creates an empty Index. The pipeline builds every document
// generation into a fresh Index.
type Factory func(ctx context.Context) (Index, error)

// Validate checks the Build preconditions and returns the common dimension
// (0 when there are no embeddings).
func Validate(chunks []string, embeddings [][]float32) (int, error) {
	if len(chunks) != len(embeddings) {
		return 0, &CountMismatchError{Chunks: len(chunks), Embeddings: len(embeddings)}
	}
	if len(embeddings) == 0 {
		return 0, nil
	}
	dim := len(embeddings[0])
	if dim == 0 {
		return 0, &DimensionMismatchError{Position: 0, Expected: 1, Got: 0}
	}
	for i, e := range embeddings {
		if len(e) != dim {
			return 0, &DimensionMismatchError{Position: i, Expected: dim, Got: len(e)}
		}
	}
	return dim, nil
}

// CosineDistance returns 1 - cos(a, b). A zero vector is at distance 1 from
// everything.
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
