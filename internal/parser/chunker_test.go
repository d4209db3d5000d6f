package parser

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_ConcreteScenario(t *testing.T) {
	text := strings.Repeat("A", 1000)

	chunks, err := SplitText(text, 800, 150)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	assert.Len(t, chunks[0], 800)
	assert.Len(t, chunks[1], 350)
	assert.Equal(t, chunks[0][800-150:], chunks[1][:150])
}

func TestSplitText_EdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		size    int
		overlap int
		want    []string
	}{
		{name: "empty text", text: "", size: 10, overlap: 2, want: nil},
		{name: "shorter than size", text: "hello", size: 10, overlap: 2, want: []string{"hello"}},
		{name: "exactly size", text: "abcdefghij", size: 10, overlap: 2, want: []string{"abcdefghij"}},
		{name: "one past size", text: "abcdefghijk", size: 10, overlap: 2, want: []string{"abcdefghij", "ijk"}},
		{name: "no overlap", text: "abcdef", size: 2, overlap: 0, want: []string{"ab", "cd", "ef"}},
		{name: "multibyte runes", text: "ééééé", size: 3, overlap: 1, want: []string{"ééé", "ééé"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := SplitText(tt.text, tt.size, tt.overlap)
			require.NoError(t, err)
			assert.Equal(t, tt.want, chunks)
		})
	}
}

func TestSplitText_InvalidParams(t *testing.T) {
	for _, p := range [][2]int{{0, 0}, {-1, 0}, {10, -1}, {10, 10}, {10, 11}} {
		_, err := SplitText("text", p[0], p[1])
		assert.ErrorIs(t, err, ErrInvalidChunkParams, "size=%d overlap=%d", p[0], p[1])
	}
}

func TestSplitText_Properties(t *testing.T) {
	texts := []string{
		"a",
		strings.Repeat("lorem ipsum dolor sit amet ", 97),
		"Convocation à la préfecture le 12 mars à 9h30.\n\nMerci d'apporter votre passeport.",
		strings.Repeat("日本語のテキスト", 50),
	}
	params := [][2]int{{800, 150}, {10, 3}, {7, 0}, {2, 1}}

	for _, text := range texts {
		for _, p := range params {
			size, overlap := p[0], p[1]

			first, err := SplitText(text, size, overlap)
			require.NoError(t, err)
			second, err := SplitText(text, size, overlap)
			require.NoError(t, err)
			assert.Equal(t, first, second, "deterministic")

			assert.Equal(t, text, JoinChunks(first, overlap), "coverage size=%d overlap=%d", size, overlap)

			for i, c := range first {
				assert.LessOrEqual(t, utf8.RuneCountInString(c), size)
				if i > 0 {
					prev := []rune(first[i-1])
					cur := []rune(c)
					assert.Equal(t, string(prev[len(prev)-overlap:]), string(cur[:overlap]), "overlap between %d and %d", i-1, i)
				}
			}

			if utf8.RuneCountInString(text) > size {
				assert.GreaterOrEqual(t, len(first), 2)
			} else {
				assert.Len(t, first, 1)
			}
		}
	}
}

func TestNewChunker(t *testing.T) {
	c, err := NewChunker("window", 800, 150)
	require.NoError(t, err)
	assert.IsType(t, &WindowChunker{}, c)

	c, err = NewChunker("recursive", 100, 10)
	require.NoError(t, err)
	assert.IsType(t, &RecursiveChunker{}, c)

	_, err = NewChunker("semantic", 100, 10)
	assert.Error(t, err)

	_, err = NewChunker("window", 100, 100)
	assert.ErrorIs(t, err, ErrInvalidChunkParams)
}

func TestRecursiveChunker_Split(t *testing.T) {
	c, err := NewRecursiveChunker(40, 5)
	require.NoError(t, err)

	chunks, err := c.Split("")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	chunks, err = c.Split(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 40)
		assert.Contains(t, text, chunk)
	}
}
