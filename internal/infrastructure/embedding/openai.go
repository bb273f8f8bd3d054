// Package embedding provides the optional vector capability over an
// OpenAI-compatible embeddings endpoint.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"MindCanvas/internal/config"
	"MindCanvas/internal/ports"
)

// Client implements ports.Embedder over HTTP. The vector dimension is a
// deployment constant from config, never negotiated at runtime.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	dimension  int
	httpClient *http.Client
}

var _ ports.Embedder = (*Client)(nil)

// NewClient builds an embeddings client. Returns nil when no API key is
// provided so the capability reads as absent.
func NewClient(cfg config.EmbeddingConfig, apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     apiKey,
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Dimension returns the configured vector length.
func (c *Client) Dimension() int { return c.dimension }

// Vector embeds a single text. The response vector must match the
// configured dimension; anything else is an error so mismatched vectors
// never reach the store.
func (c *Client) Vector(ctx context.Context, text string) ([]float64, error) {
	if c == nil {
		return nil, fmt.Errorf("embedding client is nil")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	body, err := json.Marshal(map[string]any{
		"model":      c.model,
		"input":      text,
		"dimensions": c.dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embeddings error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("empty embeddings response")
	}

	vector := parsed.Data[0].Embedding
	if c.dimension > 0 && len(vector) != c.dimension {
		return nil, fmt.Errorf("dimension mismatch: got %d, want %d", len(vector), c.dimension)
	}
	return vector, nil
}
