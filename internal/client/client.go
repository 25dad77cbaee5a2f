// Package client is a minimal HTTP client for the ragserver API, used by
// the terminal chat frontend.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"ragserver/internal/domain"
)

const sessionHeader = "X-Session-ID"

// Client talks to one ragserver instance on behalf of one session.
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
}

func New(baseURL, sessionID string) *Client {
	return &Client{
		baseURL:    baseURL,
		sessionID:  sessionID,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Ask sends a question and returns the answer with citations.
func (c *Client) Ask(question string, k int) (domain.Answer, error) {
	body, err := json.Marshal(map[string]any{"question": question, "k": k})
	if err != nil {
		return domain.Answer{}, err
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/query", bytes.NewReader(body))
	if err != nil {
		return domain.Answer{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(sessionHeader, c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Answer{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Answer{}, apiFailure("query", resp)
	}
	var answer domain.Answer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return domain.Answer{}, fmt.Errorf("decode answer: %w", err)
	}
	return answer, nil
}

// Upload ingests one local text file into the session.
func (c *Client) Upload(path string, content io.Reader) (domain.Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return domain.Document{}, err
	}
	if _, err := io.Copy(fw, content); err != nil {
		return domain.Document{}, err
	}
	if err := mw.Close(); err != nil {
		return domain.Document{}, err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/upload", &buf)
	if err != nil {
		return domain.Document{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(sessionHeader, c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Document{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Document{}, apiFailure("upload", resp)
	}
	var doc domain.Document
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return domain.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Documents lists the session's uploads.
func (c *Client) Documents() ([]domain.DocumentSummary, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/documents", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(sessionHeader, c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apiFailure("documents", resp)
	}
	var summaries []domain.DocumentSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return summaries, nil
}

func apiFailure(op string, resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s failed: %s: %s", op, resp.Status, bytes.TrimSpace(payload))
}
