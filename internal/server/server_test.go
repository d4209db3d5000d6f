package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-assistant/internal/agent"
	"document-assistant/internal/config"
	"document-assistant/internal/embedding"
	"document-assistant/internal/models"
	"document-assistant/internal/parser"
	"document-assistant/internal/rag"
	"document-assistant/internal/session"
	"document-assistant/internal/vectorstore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	return "**answer**", nil
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, &embedding.ProviderError{Provider: "fake", Attempts: 3, Err: errors.New("timeout")}
}

func (failingEmbedder) EmbedMany(context.Context, []string) ([][]float32, error) {
	return nil, &embedding.ProviderError{Provider: "fake", Attempts: 3, Err: errors.New("timeout")}
}

func newTestServer(t *testing.T, embedder embedding.Embedder) *Server {
	t.Helper()
	newIndex := func() *rag.Index {
		chunker, err := parser.NewWindowChunker(40, 10)
		require.NoError(t, err)
		return rag.New(chunker, embedder, vectorstore.MemoryFactory, 3)
	}
	store, err := session.NewStore(10, newIndex)
	require.NoError(t, err)
	assistant := agent.NewAssistant(agent.NewTools(echoGenerator{}), 3)
	return New(config.ServerConfig{MaxUploadSize: 1 << 20}, store, assistant)
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	w := do(t, s, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	require.Equal(t, http.StatusCreated, w.Code)
	var body struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.ID)
	return body.ID
}

func uploadRequest(t *testing.T, id, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/document", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func actionRequestBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, embedding.NewHashEmbedder(32))
	w := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestDocumentFlow(t *testing.T) {
	s := newTestServer(t, embedding.NewHashEmbedder(32))
	id := createSession(t, s)

	// actions needing a document fail before upload
	w := do(t, s, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/actions",
		actionRequestBody(t, map[string]string{"action": "qa", "input": "date ?"})))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	doc := "Convocation à la préfecture le 3 mars à 10h. Apportez votre passeport et un justificatif de domicile."
	w = do(t, s, uploadRequest(t, id, "convocation.txt", doc))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var upload struct {
		Chunks int  `json:"chunks"`
		Loaded bool `json:"loaded"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &upload))
	assert.True(t, upload.Loaded)
	assert.Greater(t, upload.Chunks, 1)

	w = do(t, s, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/actions",
		actionRequestBody(t, map[string]string{"action": "qa", "input": "Quand est la convocation ?", "format": "html"})))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp agent.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, agent.ActionQA, resp.Action)
	assert.Contains(t, resp.Answer, "<strong>answer</strong>")
	assert.NotEmpty(t, resp.Context)

	w = do(t, s, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/actions",
		actionRequestBody(t, map[string]string{"action": "overview"})))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var hist struct {
		History []models.HistoryEntry `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	require.Len(t, hist.History, 2)
	assert.Equal(t, "qa", hist.History[0].Type)
	assert.Equal(t, "**answer**", hist.History[0].Answer)
	assert.Equal(t, "Overview request", hist.History[1].Question)

	w = do(t, s, httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+id, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, s, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/history", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadErrors(t *testing.T) {
	s := newTestServer(t, failingEmbedder{})
	id := createSession(t, s)

	w := do(t, s, uploadRequest(t, "missing", "a.txt", "text"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, uploadRequest(t, id, "image.png", "not text"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = do(t, s, uploadRequest(t, id, "broken.pdf", "not a pdf"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, s, uploadRequest(t, id, "doc.txt", "Un document valide."))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), models.ProcessingWarning)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id+"/document", strings.NewReader(""))
	w = do(t, s, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActionErrors(t *testing.T) {
	s := newTestServer(t, embedding.NewHashEmbedder(32))
	id := createSession(t, s)
	url := "/api/v1/sessions/" + id + "/actions"

	w := do(t, s, httptest.NewRequest(http.MethodPost, url, strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, httptest.NewRequest(http.MethodPost, url, actionRequestBody(t, map[string]string{"action": "dance"})))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, httptest.NewRequest(http.MethodPost, url, actionRequestBody(t, map[string]string{"action": "general"})))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, httptest.NewRequest(http.MethodPost, url, actionRequestBody(t, map[string]string{"action": "general", "input": "Qu'est-ce que la CAF ?"})))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, s, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/nope/actions", actionRequestBody(t, map[string]string{"action": "general", "input": "x"})))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
