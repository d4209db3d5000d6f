package rag

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"document-assistant/internal/embedding"
	"document-assistant/internal/models"
	"document-assistant/internal/parser"
	"document-assistant/internal/vectorstore"
)

// generation is one loaded document. It is never mutated after the swap.
type generation struct {
	chunks []string
	index  vectorstore.Index
}

// Index is the document retrieval pipeline: chunk, embed, index, query.
// Searches always see either the previous or the new document, never a
// partially built one.
type Index struct {
	chunker  parser.Chunker
	embedder embedding.Embedder
	factory  vectorstore.Factory
	topK     int

	loadMu  sync.Mutex
	queryMu sync.RWMutex
	current atomic.Pointer[generation]
}

func New(chunker parser.Chunker, embedder embedding.Embedder, factory vectorstore.Factory, topK int) *Index {
	if topK <= 0 {
		topK = 3
	}
	return &Index{chunker: chunker, embedder: embedder, factory: factory, topK: topK}
}

// Load replaces the indexed document with text. On error the previous
// document stays searchable.
func (x *Index) Load(ctx context.Context, text string) error {
	x.loadMu.Lock()
	defer x.loadMu.Unlock()

	chunks, err := x.chunker.Split(text)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		log.Info().Msg("Document is empty, clearing index")
		x.swap(ctx, nil)
		return nil
	}

	embeddings, err := x.embedder.EmbedMany(ctx, chunks)
	if err != nil {
		return err
	}

	idx, err := x.factory(ctx)
	if err != nil {
		return err
	}
	if err := idx.Build(ctx, chunks, embeddings); err != nil {
		if cerr := idx.Close(ctx); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to release unused index")
		}
		return err
	}

	x.swap(ctx, &generation{chunks: chunks, index: idx})
	log.Info().Int("chunks", len(chunks)).Msg("Document loaded")
	return nil
}

func (x *Index) swap(ctx context.Context, next *generation) {
	x.queryMu.Lock()
	previous := x.current.Swap(next)
	x.queryMu.Unlock()

	// the swap already happened, release even if the caller gives up now
	if previous != nil {
		if err := previous.index.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("Failed to release previous index")
		}
	}
}

// Search returns the k most relevant chunks joined by a blank line, or
// models.NoDocumentLoaded when nothing is loaded.
func (x *Index) Search(ctx context.Context, query string, k int) (string, error) {
	matches, err := x.Retrieve(ctx, query, k)
	if errors.Is(err, vectorstore.ErrEmptyIndex) {
		return models.NoDocumentLoaded, nil
	}
	if err != nil {
		return "", err
	}

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return strings.Join(texts, models.ContextSeparator), nil
}

// Retrieve is Search with structured results. k <= 0 uses the default top k.
// A blank query returns the first k chunks in document order.
func (x *Index) Retrieve(ctx context.Context, query string, k int) ([]vectorstore.Match, error) {
	if k <= 0 {
		k = x.topK
	}
	g := x.current.Load()
	if g == nil {
		return nil, vectorstore.ErrEmptyIndex
	}

	if strings.TrimSpace(query) == "" {
		n := min(k, len(g.chunks))
		matches := make([]vectorstore.Match, n)
		for i := 0; i < n; i++ {
			matches[i] = vectorstore.Match{Position: i, Text: g.chunks[i]}
		}
		return matches, nil
	}

	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	x.queryMu.RLock()
	defer x.queryMu.RUnlock()
	g = x.current.Load()
	if g == nil {
		return nil, vectorstore.ErrEmptyIndex
	}
	return g.index.Query(ctx, vec, k)
}

func (x *Index) Loaded() bool { return x.current.Load() != nil }

func (x *Index) Len() int {
	if g := x.current.Load(); g != nil {
		return len(g.chunks)
	}
	return 0
}

// Chunks returns a copy of the loaded chunks in document order.
func (x *Index) Chunks() []string {
	g := x.current.Load()
	if g == nil {
		return nil
	}
	return append([]string(nil), g.chunks...)
}

// Close releases the current generation.
func (x *Index) Close(ctx context.Context) {
	x.loadMu.Lock()
	defer x.loadMu.Unlock()
	x.swap(ctx, nil)
}
