package server

import (
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"ragserver/internal/domain"
)

// QueryRequest is the request body for POST /api/query.
type QueryRequest struct {
	Question string `json:"question"`
	K        int    `json:"k"`
}

// DeleteResponse is the response body for DELETE /api/documents/:id.
type DeleteResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Backend string `json:"backend"`
	Storage string `json:"storage"`
	LLM     string `json:"llm"`
}

func sessionID(c echo.Context) (string, error) {
	id := strings.TrimSpace(c.Request().Header.Get(sessionHeader))
	if id == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, sessionHeader+" header is required")
	}
	return id, nil
}

// handleUpload ingests one uploaded .txt file into the caller's session.
func (s *Server) handleUpload(c echo.Context) error {
	session, err := sessionID(c)
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "missing file field")
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".txt") {
		return echo.NewHTTPError(http.StatusBadRequest, "Only .txt files are allowed")
	}
	if fileHeader.Size > s.config.MaxUploadBytes {
		return echo.NewHTTPError(http.StatusBadRequest, "File too large (Max 10MB)")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read file")
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, s.config.MaxUploadBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read file")
	}
	if int64(len(content)) > s.config.MaxUploadBytes {
		return echo.NewHTTPError(http.StatusBadRequest, "File too large (Max 10MB)")
	}
	if !utf8.Valid(content) {
		return echo.NewHTTPError(http.StatusBadRequest, "File must be valid UTF-8 text")
	}
	text := string(content)
	if strings.ContainsRune(text, '\x00') {
		return echo.NewHTTPError(http.StatusBadRequest, "File contains null bytes (binary file?)")
	}
	if strings.TrimSpace(text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "File is empty")
	}

	doc, err := s.service.Ingest(c.Request().Context(), fileHeader.Filename, text, session)
	if err != nil {
		s.logger.Error("upload failed", zap.String("filename", fileHeader.Filename), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process document")
	}
	return c.JSON(http.StatusOK, doc)
}

// handleQuery answers a question from the caller's documents.
func (s *Server) handleQuery(c echo.Context) error {
	session, err := sessionID(c)
	if err != nil {
		return err
	}

	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Question) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question field is required")
	}

	answer, err := s.service.AnswerQuestion(c.Request().Context(), req.Question, session, req.K)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to answer question")
	}
	return c.JSON(http.StatusOK, answer)
}

// handleListDocuments lists the caller's uploads, one entry per source.
func (s *Server) handleListDocuments(c echo.Context) error {
	session, err := sessionID(c)
	if err != nil {
		return err
	}
	summaries := s.store.List(session)
	if summaries == nil {
		summaries = []domain.DocumentSummary{}
	}
	return c.JSON(http.StatusOK, summaries)
}

// handleDeleteDocument removes every chunk of one document.
func (s *Server) handleDeleteDocument(c echo.Context) error {
	session, err := sessionID(c)
	if err != nil {
		return err
	}
	removed, err := s.store.DeleteDocument(c.Param("id"), session)
	if err != nil {
		s.logger.Error("delete failed", zap.String("doc_id", c.Param("id")), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete document")
	}
	if !removed {
		return echo.NewHTTPError(http.StatusNotFound, "Document not found")
	}
	return c.JSON(http.StatusOK, DeleteResponse{Message: "Document deleted successfully"})
}

// handleHealth reports component statuses without failing the request.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Backend: "ok", Storage: "ok", LLM: "error"}
	if s.llm != nil && s.llm.CheckConnection(c.Request().Context()) {
		resp.LLM = "ok"
	}
	return c.JSON(http.StatusOK, resp)
}
