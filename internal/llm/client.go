// Package llm talks to an OpenAI-compatible API for embeddings and chat
// completions. Rate-limit and server errors are retried a bounded number
// of times with linearly increasing backoff before the failure is
// propagated to the caller.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const systemInstruction = `You are a helpful assistant for a Private Knowledge Q&A system.
Answer the user question based ONLY on the provided context below.
If the answer cannot be found in the context, state that you cannot find the answer in the documents.
Do not hallucinate or use outside knowledge.`

const maxAttempts = 3

// Client is an OpenAI-compatible embeddings and chat client.
type Client struct {
	baseURL        string
	apiKey         string
	embeddingModel string
	chatModel      string
	httpClient     *http.Client
	logger         *zap.Logger

	// base backoff intervals; attempt n waits n * base
	embedBackoff time.Duration
	chatBackoff  time.Duration
}

// Config configures the client. APIKey is required; zero values elsewhere
// fall back to OpenAI defaults.
type Config struct {
	BaseURL        string
	APIKey         string
	EmbeddingModel string
	ChatModel      string
	Timeout        time.Duration
	EmbedBackoff   time.Duration
	ChatBackoff    time.Duration
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.EmbedBackoff == 0 {
		cfg.EmbedBackoff = 2 * time.Second
	}
	if cfg.ChatBackoff == 0 {
		cfg.ChatBackoff = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		embeddingModel: cfg.EmbeddingModel,
		chatModel:      cfg.ChatModel,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		logger:         logger,
		embedBackoff:   cfg.EmbedBackoff,
		chatBackoff:    cfg.ChatBackoff,
	}, nil
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	// embedding models handle single-line input more consistently
	text = strings.ReplaceAll(text, "\n", " ")

	body := map[string]any{
		"model": c.embeddingModel,
		"input": text,
	}
	var out struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.postWithRetry(ctx, "/embeddings", body, &out, c.embedBackoff); err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embed: no embedding returned")
	}
	return out.Data[0].Embedding, nil
}

// Answer generates an answer to the question from the provided context
// chunks, in the order given.
func (c *Client) Answer(ctx context.Context, question string, contextChunks []string) (string, error) {
	contextText := strings.Join(contextChunks, "\n\n---\n\n")
	userMessage := fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n", contextText, question)

	body := map[string]any{
		"model":       c.chatModel,
		"temperature": 0.0,
		"messages": []map[string]string{
			{"role": "system", "content": systemInstruction},
			{"role": "user", "content": userMessage},
		},
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.postWithRetry(ctx, "/chat/completions", body, &out, c.chatBackoff); err != nil {
		return "", fmt.Errorf("answer: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("answer: no completion returned")
	}
	return out.Choices[0].Message.Content, nil
}

// CheckConnection reports whether the API is reachable with the
// configured credentials.
func (c *Client) CheckConnection(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 300
}

func (c *Client) postWithRetry(ctx context.Context, path string, body, out any, backoff time.Duration) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * backoff
			c.logger.Warn("llm request retrying",
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr),
			)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.post(ctx, path, data, out)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) post(ctx context.Context, path string, data []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apiError{status: 0, err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &apiError{status: resp.StatusCode, err: fmt.Errorf("%s: %s", resp.Status, bytes.TrimSpace(payload))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

type apiError struct {
	status int
	err    error
}

func (e *apiError) Error() string { return e.err.Error() }
func (e *apiError) Unwrap() error { return e.err }

// isRetryable reports whether the request may succeed on a later attempt:
// transport failures, rate limiting and server-side errors.
func isRetryable(err error) bool {
	ae, ok := err.(*apiError)
	if !ok {
		return false
	}
	return ae.status == 0 || ae.status == http.StatusTooManyRequests || ae.status >= 500
}
