// Package server exposes the HTTP API for the question-answering service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"ragserver/internal/domain"
)

const sessionHeader = "X-Session-ID"

// ConnectionChecker reports whether the LLM backend is reachable.
type ConnectionChecker interface {
	CheckConnection(ctx context.Context) bool
}

// Retriever is the service surface the HTTP layer drives.
type Retriever interface {
	Ingest(ctx context.Context, filename, text, sessionID string) (domain.Document, error)
	AnswerQuestion(ctx context.Context, question, sessionID string, k int) (domain.Answer, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	service Retriever
	store   domain.ChunkStore
	llm     ConnectionChecker
	logger  *zap.Logger
	config  *Config
}

// NewServer creates the HTTP server with routing, CORS and request
// logging wired in.
func NewServer(service Retriever, store domain.ChunkStore, llm ConnectionChecker, logger *zap.Logger, cfg *Config) (*Server, error) {
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8000}
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 10 << 20
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: []string{echo.HeaderContentType, sessionHeader},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		service: service,
		store:   store,
		llm:     llm,
		logger:  logger,
		config:  cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.POST("/upload", s.handleUpload)
	api.POST("/query", s.handleQuery)
	api.GET("/documents", s.handleListDocuments)
	api.DELETE("/documents/:id", s.handleDeleteDocument)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
