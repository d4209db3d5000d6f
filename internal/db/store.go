package db

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"document-assistant/internal/vectorstore"
)

// Chunk is one embedded chunk of a document generation.
type Chunk struct {
	bun.BaseModel `bun:"table:document_chunks,alias:dc"`
	Generation    string          `bun:"generation,pk,type:uuid"`
	Position      int             `bun:"position,pk"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
}

type chunkMatch struct {
	Position int     `bun:"position"`
	Content  string  `bun:"content"`
	Distance float64 `bun:"distance"`
}

// Store is a vectorstore.Index whose rows live in Postgres, keyed by a
// generation id so several generations can share the table.
type Store struct {
	db         *bun.DB
	generation string
	count      atomic.Int64
	dimension  atomic.Int64
}

func NewStore(db *bun.DB, generation string) *Store {
	return &Store{db: db, generation: generation}
}

// NewFactory returns a vectorstore.Factory creating one Store per generation.
func NewFactory(db *bun.DB) vectorstore.Factory {
	return func(context.Context) (vectorstore.Index, error) {
		return NewStore(db, uuid.NewString()), nil
	}
}

func (s *Store) Build(ctx context.Context, chunks []string, embeddings [][]float32) error {
	dim, err := vectorstore.Validate(chunks, embeddings)
	if err != nil {
		return err
	}

	rows := make([]Chunk, len(chunks))
	for i, c := range chunks {
		rows[i] = Chunk{
			Generation: s.generation,
			Position:   i,
			Content:    c,
			Embedding:  pgvector.NewVector(embeddings[i]),
		}
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*Chunk)(nil)).Where("generation = ?", s.generation).Exec(ctx); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&rows).Returning("NULL").Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("store generation %s: %w", s.generation, err)
	}

	s.count.Store(int64(len(rows)))
	s.dimension.Store(int64(dim))
	log.Debug().Str("generation", s.generation).Int("chunks", len(rows)).Msg("Stored chunks")
	return nil
}

func (s *Store) Query(ctx context.Context, embedding []float32, k int) ([]vectorstore.Match, error) {
	count := int(s.count.Load())
	if count == 0 {
		return nil, vectorstore.ErrEmptyIndex
	}
	if dim := int(s.dimension.Load()); len(embedding) != dim {
		return nil, &vectorstore.DimensionMismatchError{Position: -1, Expected: dim, Got: len(embedding)}
	}
	if k <= 0 || k > count {
		k = count
	}

	var rows []chunkMatch
	err := s.db.NewSelect().
		Model((*Chunk)(nil)).
		Column("position", "content").
		ColumnExpr("embedding <=> ? AS distance", pgvector.NewVector(embedding)).
		Where("generation = ?", s.generation).
		OrderExpr("distance ASC, position ASC").
		Limit(k).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("search generation %s: %w", s.generation, err)
	}

	matches := make([]vectorstore.Match, len(rows))
	for i, r := range rows {
		matches[i] = vectorstore.Match{Position: r.Position, Text: r.Content, Distance: r.Distance}
	}
	return matches, nil
}

func (s *Store) Len() int { return int(s.count.Load()) }

// Close deletes the generation's rows.
func (s *Store) Close(ctx context.Context) error {
	s.count.Store(0)
	_, err := s.db.NewDelete().Model((*Chunk)(nil)).Where("generation = ?", s.generation).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete generation %s: %w", s.generation, err)
	}
	return nil
}
