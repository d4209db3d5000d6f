package parser

import (
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 150
)

var ErrInvalidChunkParams = errors.New("chunk size must be positive and overlap in [0, size)")

// Chunker splits document text into pieces that are embedded independently.
type Chunker interface {
	Split(text string) ([]string, error)
}

// SplitText cuts text into windows of at most size characters (runes), each
// window after the first starting size-overlap characters after the previous
// one. The final window always ends at the end of the text. Empty text yields
// no chunks.
func SplitText(text string, size, overlap int) ([]string, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkParams, size, overlap)
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	n := len(runes)
	step := size - overlap

	var chunks []string
	for start := 0; ; start += step {
		end := min(start+size, n)
		chunks = append(chunks, string(runes[start:end]))
		if end == n {
			break
		}
	}
	return chunks, nil
}

// JoinChunks rebuilds the text SplitText was given, dropping the leading
// overlap of every chunk but the first.
func JoinChunks(chunks []string, overlap int) string {
	var out []rune
	for i, chunk := range chunks {
		r := []rune(chunk)
		if i > 0 {
			r = r[min(overlap, len(r)):]
		}
		out = append(out, r...)
	}
	return string(out)
}

// WindowChunker is the character-window Chunker.
type WindowChunker struct {
	Size    int
	Overlap int
}

func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkParams, size, overlap)
	}
	return &WindowChunker{Size: size, Overlap: overlap}, nil
}

func (c *WindowChunker) Split(text string) ([]string, error) {
	return SplitText(text, c.Size, c.Overlap)
}

// RecursiveChunker prefers paragraph, line and word boundaries. Its chunks do
// not reconstruct the source exactly.
type RecursiveChunker struct {
	splitter textsplitter.RecursiveCharacter
}

func NewRecursiveChunker(size, overlap int) (*RecursiveChunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunkParams, size, overlap)
	}
	return &RecursiveChunker{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}, nil
}

func (c *RecursiveChunker) Split(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	chunks, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("recursive split: %w", err)
	}
	return chunks, nil
}

// NewChunker builds the chunker named by kind ("window" or "recursive").
func NewChunker(kind string, size, overlap int) (Chunker, error) {
	switch kind {
	case "window", "":
		return NewWindowChunker(size, overlap)
	case "recursive":
		return NewRecursiveChunker(size, overlap)
	default:
		return nil, fmt.Errorf("unknown chunker: %s", kind)
	}
}
