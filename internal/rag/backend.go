package rag

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"document-assistant/internal/chromemdb"
	"document-assistant/internal/config"
	"document-assistant/internal/db"
	"document-assistant/internal/embedding"
	"document-assistant/internal/parser"
	"document-assistant/internal/vectorstore"
)

// NewFactory returns the Factory for cfg.Index.Backend and a func releasing
// the backend's resources.
func NewFactory(ctx context.Context, cfg *config.Config) (vectorstore.Factory, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Index.Backend {
	case "memory", "":
		return vectorstore.MemoryFactory, noop, nil
	case "chromem":
		return chromemdb.Factory, noop, nil
	case "pgvector":
		sqldb, err := db.ConnectDB(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		bunDB := db.NewDB(sqldb, cfg.Database.Debug)
		if err := db.Prepare(ctx, bunDB, cfg.Database.Reset); err != nil {
			bunDB.Close()
			return nil, nil, err
		}
		log.Info().Str("driver", cfg.Database.Driver).Msg("pgvector backend ready")
		return db.NewFactory(bunDB), bunDB.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown index backend: %s", cfg.Index.Backend)
	}
}

// Builder creates one Index per document session, sharing the embedder and
// backend.
type Builder struct {
	cfg      *config.Config
	embedder embedding.Embedder
	factory  vectorstore.Factory
	closer   func() error
}

func NewBuilder(ctx context.Context, cfg *config.Config, embedder embedding.Embedder) (*Builder, error) {
	if _, err := parser.NewChunker(cfg.RAG.Chunker, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap); err != nil {
		return nil, err
	}
	factory, closer, err := NewFactory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg, embedder: embedder, factory: factory, closer: closer}, nil
}

func (b *Builder) NewIndex() *Index {
	// parameters were validated in NewBuilder
	chunker, _ := parser.NewChunker(b.cfg.RAG.Chunker, b.cfg.RAG.ChunkSize, b.cfg.RAG.ChunkOverlap)
	return New(chunker, b.embedder, b.factory, b.cfg.RAG.TopK)
}

func (b *Builder) Close() error { return b.closer() }
