package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"document-assistant/internal/vectorstore"
)

const positionKey = "position"

var errNoEmbeddingFunc = errors.New("chromem collection only accepts precomputed embeddings")

// Store is a vectorstore.Index backed by one chromem-go collection per
// document generation.
type Store struct {
	db         *chromem.DB
	mu         sync.RWMutex
	collection *chromem.Collection
	dimension  int
}

// NewStore opens an in-memory chromem database.
func NewStore() *Store {
	return &Store{db: chromem.NewDB()}
}

// Factory is the vectorstore.Factory for the chromem backend.
func Factory(context.Context) (vectorstore.Index, error) {
	return NewStore(), nil
}

func (s *Store) Build(ctx context.Context, chunks []string, embeddings [][]float32) error {
	dim, err := vectorstore.Validate(chunks, embeddings)
	if err != nil {
		return err
	}

	// create collection
	name := "doc-" + uuid.NewString()
	c, err := s.db.CreateCollection(name, nil, func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbeddingFunc
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   chunk,
			Metadata:  map[string]string{positionKey: strconv.Itoa(i)},
			Embedding: append([]float32(nil), embeddings[i]...),
		}
	}
	if len(docs) > 0 {
		if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			_ = s.db.DeleteCollection(name)
			return fmt.Errorf("failed to add documents: %w", err)
		}
	}
	log.Debug().Str("collection", name).Int("documents", len(docs)).Msg("Chromem collection built")

	s.mu.Lock()
	previous := s.collection
	s.collection = c
	s.dimension = dim
	s.mu.Unlock()

	if previous != nil {
		if err := s.db.DeleteCollection(previous.Name); err != nil {
			log.Warn().Err(err).Str("collection", previous.Name).Msg("Failed to drop replaced collection")
		}
	}
	return nil
}

// Query ranks every stored chunk so ties are broken by position regardless
// of the order chromem returns them in.
func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]vectorstore.Match, error) {
	s.mu.RLock()
	c, dim := s.collection, s.dimension
	s.mu.RUnlock()

	if c == nil || c.Count() == 0 {
		return nil, vectorstore.ErrEmptyIndex
	}
	if len(embedding) != dim {
		return nil, &vectorstore.DimensionMismatchError{Position: -1, Expected: dim, Got: len(embedding)}
	}

	results, err := c.QueryEmbedding(ctx, append([]float32(nil), embedding...), c.Count(), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	matches := make([]vectorstore.Match, 0, len(results))
	for _, r := range results {
		pos, err := strconv.Atoi(r.Metadata[positionKey])
		if err != nil {
			return nil, fmt.Errorf("document %s has no position: %w", r.ID, err)
		}
		distance := 1 - float64(r.Similarity)
		// chromem normalizes vectors, a zero vector comes back as NaN
		if math.IsNaN(distance) {
			distance = 1
		}
		matches = append(matches, vectorstore.Match{Position: pos, Text: r.Content, Distance: distance})
	}
	vectorstore.SortMatches(matches)

	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return 0
	}
	return s.collection.Count()
}

// Close drops the collection.
func (s *Store) Close(context.Context) error {
	s.mu.Lock()
	c := s.collection
	s.collection = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}
	if err := s.db.DeleteCollection(c.Name); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}
