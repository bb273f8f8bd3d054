package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MindCanvas/internal/config"
)

func testConfig(endpoint string, dimension int) config.EmbeddingConfig {
	return config.EmbeddingConfig{
		Endpoint:  endpoint,
		Model:     "text-embedding-3-small",
		Dimension: dimension,
		Timeout:   5 * time.Second,
	}
}

func embeddingResponse(t *testing.T, vector []float64) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"data": []map[string]any{{"embedding": vector}},
	})
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return body
}

func TestNewClientWithoutKey(t *testing.T) {
	t.Parallel()

	if c := NewClient(testConfig("http://x", 2), ""); c != nil {
		t.Fatalf("expected nil client without api key")
	}
}

func TestVector(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req struct {
			Model      string `json:"model"`
			Input      string `json:"input"`
			Dimensions int    `json:"dimensions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Dimensions != 2 {
			t.Errorf("unexpected dimensions %d", req.Dimensions)
		}
		_, _ = w.Write(embeddingResponse(t, []float64{0.6, 0.8}))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL, 2), "test-key")
	vector, err := c.Vector(context.Background(), "some text")
	if err != nil {
		t.Fatalf("Vector: %v", err)
	}
	if len(vector) != 2 || vector[0] != 0.6 {
		t.Fatalf("unexpected vector: %v", vector)
	}
}

func TestVectorDimensionMismatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(embeddingResponse(t, []float64{1, 2, 3}))
	}))
	defer server.Close()

	c := NewClient(testConfig(server.URL, 2), "test-key")
	if _, err := c.Vector(context.Background(), "text"); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestVectorEmptyText(t *testing.T) {
	t.Parallel()

	c := NewClient(testConfig("http://unused", 2), "test-key")
	if _, err := c.Vector(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty text")
	}
}
