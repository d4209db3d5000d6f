package helper

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUID(t *testing.T) {
	a, err := GenerateUUID()
	require.NoError(t, err)
	b, err := GenerateUUID()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	_, err = uuid.Parse(a)
	assert.NoError(t, err)
}

func TestMarkdownToHTML(t *testing.T) {
	out, err := MarkdownToHTML("# Étapes\n\n1. Prendre rendez-vous\n2. Apporter **le passeport**\n\nligne un\nligne deux")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Étapes</h1>")
	assert.Contains(t, out, "<li>Prendre rendez-vous</li>")
	assert.Contains(t, out, "<strong>le passeport</strong>")
	assert.Contains(t, out, "ligne un<br>")

	out, err = MarkdownToHTML("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}
