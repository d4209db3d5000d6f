package vectorstore

import (
	"context"
	"sort"
)

// MemoryIndex is a brute-force cosine index held in process memory. It is
// meant to be built once and then only read.
type MemoryIndex struct {
	dimension  int
	chunks     []string
	embeddings [][]float32
}

func NewMemoryIndex() *MemoryIndex { return &MemoryIndex{} }

// MemoryFactory is the Factory for MemoryIndex.
func MemoryFactory(context.Context) (Index, error) { return NewMemoryIndex(), nil }

func (m *MemoryIndex) Build(_ context.Context, chunks []string, embeddings [][]float32) error {
	dim, err := Validate(chunks, embeddings)
	if err != nil {
		return err
	}

	c := make([]string, len(chunks))
	copy(c, chunks)
	e := make([][]float32, len(embeddings))
	for i, v := range embeddings {
		e[i] = append([]float32(nil), v...)
	}

	m.dimension = dim
	m.chunks = c
	m.embeddings = e
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, embedding []float32, k int) ([]Match, error) {
	if len(m.chunks) == 0 {
		return nil, ErrEmptyIndex
	}
	if len(embedding) != m.dimension {
		return nil, &DimensionMismatchError{Position: -1, Expected: m.dimension, Got: len(embedding)}
	}

	matches := make([]Match, len(m.chunks))
	for i := range m.chunks {
		matches[i] = Match{
			Position: i,
			Text:     m.chunks[i],
			Distance: CosineDistance(embedding, m.embeddings[i]),
		}
	}
	SortMatches(matches)

	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *MemoryIndex) Len() int { return len(m.chunks) }

func (m *MemoryIndex) Close(context.Context) error {
	m.chunks = nil
	m.embeddings = nil
	return nil
}

// SortMatches orders by ascending distance, ties by position.
func SortMatches(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Position < matches[j].Position
	})
}
