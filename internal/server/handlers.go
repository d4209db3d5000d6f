package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-assistant/internal/agent"
	"document-assistant/internal/embedding"
	"document-assistant/internal/helper"
	"document-assistant/internal/llmservice"
	"document-assistant/internal/models"
	"document-assistant/internal/parser"
	"document-assistant/internal/session"
)

type actionRequest struct {
	Action string `json:"action" binding:"required"`
	Input  string `json:"input"`
	Mode   string `json:"mode"`
	Format string `json:"format"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "sessions": s.sessions.Len()})
}

func (s *Server) createSession(c *gin.Context) {
	sess, err := s.sessions.Create()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": sess.ID})
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.sessions.Delete(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) uploadDocument(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	if s.cfg.MaxUploadSize > 0 && header.Size > s.cfg.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "document is too large"})
		return
	}
	if !parser.IsSupported(header.Filename) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported document type " + filepath.Ext(header.Filename)})
		return
	}

	text, err := s.extract(c, header)
	if err != nil {
		log.Warn().Err(err).Str("file", header.Filename).Msg("Text extraction failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not read document"})
		return
	}

	if err := sess.LoadDocument(c.Request.Context(), text); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chunks": sess.Index.Len(), "loaded": sess.Index.Loaded()})
}

// extract reads PDFs straight from the upload and spools other formats to a
// temporary file for their path based readers.
func (s *Server) extract(c *gin.Context, header *multipart.FileHeader) (string, error) {
	if strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		f, err := header.Open()
		if err != nil {
			return "", err
		}
		defer f.Close()
		return parser.ExtractPDF(f, header.Size)
	}

	dir, err := os.MkdirTemp("", "upload-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(header.Filename))
	if err := c.SaveUploadedFile(header, path); err != nil {
		return "", err
	}
	return parser.ExtractText(path)
}

func (s *Server) runAction(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}

	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	action, err := agent.ParseAction(req.Action)
	if err != nil {
		s.fail(c, err)
		return
	}

	areq := agent.Request{Action: action, Input: req.Input, Mode: req.Mode}
	resp, err := s.assistant.Do(c.Request.Context(), sess.Index, areq)
	if err != nil {
		s.fail(c, err)
		return
	}

	sess.Record(models.HistoryEntry{
		Type:     string(action),
		Question: agent.HistoryQuestion(areq),
		Answer:   resp.Answer,
	})

	if req.Format == "html" {
		html, err := helper.MarkdownToHTML(resp.Answer)
		if err != nil {
			s.fail(c, err)
			return
		}
		resp.Answer = html
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) history(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": sess.History()})
}

// fail maps domain errors to status codes. Anything unexpected is logged and
// hidden behind a generic message.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, agent.ErrNoDocument), errors.Is(err, agent.ErrEmptyInput), errors.Is(err, agent.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case embedding.IsProviderError(err):
		log.Warn().Err(err).Msg("Embedding provider failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": models.ProcessingWarning})
	case errors.Is(err, llmservice.ErrGeneration):
		log.Warn().Err(err).Msg("Generation failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "the assistant is unavailable, try again"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
