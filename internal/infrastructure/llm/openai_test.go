package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MindCanvas/internal/config"
	"MindCanvas/internal/domain"
)

func completionResponse(t *testing.T, payload any) []byte {
	t.Helper()
	content, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	body, err := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": string(content)}},
		},
	})
	if err != nil {
		t.Fatalf("marshal completion: %v", err)
	}
	return body
}

func testClient(endpoint string) *OpenAIClient {
	return NewOpenAIClient(config.OpenAIConfig{
		Endpoint: endpoint,
		Model:    "gpt-4o-mini",
		APIKey:   "test-key",
		Timeout:  5 * time.Second,
	})
}

func TestNewOpenAIClientWithoutKey(t *testing.T) {
	t.Parallel()

	if c := NewOpenAIClient(config.OpenAIConfig{Model: "m"}); c != nil {
		t.Fatalf("expected nil client without api key")
	}
}

func TestEnrichBatch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		_, _ = w.Write(completionResponse(t, map[string]any{
			"items": []map[string]any{
				{
					"title":        "Cleaned Title",
					"summary":      "A useful summary.",
					"content_type": "Tutorial",
					"key_topics":   []string{"Python", "python", "testing"},
				},
			},
		}))
	}))
	defer server.Close()

	c := testClient(server.URL)
	pages := []domain.PageContent{{
		URL:     "https://example.com",
		Title:   "Raw title",
		Content: "some page text",
		Domain:  "example.com",
	}}

	metas, err := c.EnrichBatch(context.Background(), pages)
	if err != nil {
		t.Fatalf("EnrichBatch: %v", err)
	}
	if len(metas) != 1 {
		t.Fatalf("expected 1 meta, got %d", len(metas))
	}

	meta := metas[0]
	if meta.Title != "Cleaned Title" || meta.Method != domain.MethodAI {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	if meta.ContentType != domain.TypeTutorial {
		t.Fatalf("unexpected content type: %s", meta.ContentType)
	}
	// Topics lowercased and de-duplicated.
	if len(meta.KeyTopics) != 2 || meta.KeyTopics[0] != "python" || meta.KeyTopics[1] != "testing" {
		t.Fatalf("unexpected topics: %v", meta.KeyTopics)
	}
}

func TestEnrichBatchPadsMissingEntries(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionResponse(t, map[string]any{
			"items": []map[string]any{
				{"title": "Only One", "summary": "s", "content_type": "Article"},
			},
		}))
	}))
	defer server.Close()

	c := testClient(server.URL)
	pages := []domain.PageContent{
		{URL: "https://example.com/1", Title: "First", Content: "text one"},
		{URL: "https://example.com/2", Title: "Second", Content: "text two", Domain: "example.com"},
	}

	metas, err := c.EnrichBatch(context.Background(), pages)
	if err != nil {
		t.Fatalf("EnrichBatch: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected meta per page, got %d", len(metas))
	}
	if metas[1].Method != domain.MethodBasic {
		t.Fatalf("expected rule-based padding for missing entry, got %s", metas[1].Method)
	}
}

func TestEnrichBatchServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := testClient(server.URL)
	if _, err := c.EnrichBatch(context.Background(), []domain.PageContent{{URL: "u", Title: "t", Content: "c"}}); err == nil {
		t.Fatalf("expected error on 429 response")
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionResponse(t, map[string]any{
			"clusters": []map[string]any{
				{"name": "Python Programming", "node_ids": []string{"a", "b"}},
				{"name": "", "node_ids": []string{"c"}},
			},
		}))
	}))
	defer server.Close()

	c := testClient(server.URL)
	labels, err := c.Classify(context.Background(), []domain.ClusterItemRef{
		{ID: "a"}, {ID: "b"}, {ID: "c"},
	}, 12)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}

	if labels["a"] != "Python Programming" || labels["b"] != "Python Programming" {
		t.Fatalf("unexpected labels: %v", labels)
	}
	// Nameless clusters get a positional fallback name.
	if labels["c"] != "Cluster 2" {
		t.Fatalf("unexpected fallback name: %q", labels["c"])
	}
}

func TestClassifyRejectsEmptyClusters(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(completionResponse(t, map[string]any{"clusters": []any{}}))
	}))
	defer server.Close()

	c := testClient(server.URL)
	if _, err := c.Classify(context.Background(), []domain.ClusterItemRef{{ID: "a"}}, 12); err == nil {
		t.Fatalf("expected error for empty cluster response")
	}
}

func TestStripFence(t *testing.T) {
	t.Parallel()

	fenced := "```json\n{\"ok\": true}\n```"
	if got := stripFence(fenced); got != `{"ok": true}` {
		t.Fatalf("stripFence = %q", got)
	}
	if got := stripFence(`{"ok": true}`); got != `{"ok": true}` {
		t.Fatalf("unfenced input changed: %q", got)
	}
}
