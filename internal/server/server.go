package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-assistant/internal/agent"
	"document-assistant/internal/config"
	"document-assistant/internal/session"
)

// Server exposes the assistant over a JSON HTTP API.
type Server struct {
	cfg       config.ServerConfig
	sessions  *session.Store
	assistant *agent.Assistant
	router    *gin.Engine
}

func New(cfg config.ServerConfig, sessions *session.Store, assistant *agent.Assistant) *Server {
	s := &Server{cfg: cfg, sessions: sessions, assistant: assistant}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.MaxMultipartMemory = cfg.MaxUploadSize

	router.GET("/health", s.health)
	v1 := router.Group("/api/v1/sessions")
	{
		v1.POST("", s.createSession)
		v1.DELETE("/:id", s.deleteSession)
		v1.POST("/:id/document", s.uploadDocument)
		v1.POST("/:id/actions", s.runAction)
		v1.GET("/:id/history", s.history)
	}
	s.router = router
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

// requestLogger logs one line per request through zerolog.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request")
	}
}
