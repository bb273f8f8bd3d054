// Package llm talks to OpenAI-compatible chat-completions APIs for the two
// structured capabilities the pipeline consumes: batched metadata
// enrichment and item clustering. Both are fallible by design; callers
// degrade to rule-based paths on any error.
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

	"MindCanvas/internal/config"
	"MindCanvas/internal/domain"
	"MindCanvas/internal/extract"
	"MindCanvas/internal/ports"
)

// OpenAIClient implements ports.Enricher and ports.ClusterClassifier
// backed by the chat-completions endpoint with JSON response format.
type OpenAIClient struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var (
	_ ports.Enricher          = (*OpenAIClient)(nil)
	_ ports.ClusterClassifier = (*OpenAIClient)(nil)
)

// NewOpenAIClient builds a client from configuration. Returns nil when no
// API key is configured so callers can treat the capability as absent.
func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	if cfg.APIKey == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIClient{
		endpoint:   cfg.Endpoint,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type enrichedItem struct {
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	ContentType string   `json:"content_type"`
	KeyTopics   []string `json:"key_topics"`
}

// EnrichBatch sends one whole batch in a single call and parses the JSON
// "items" array response. Entries the model skipped are filled from the
// rule-based extractor rather than dropped.
func (c *OpenAIClient) EnrichBatch(ctx context.Context, pages []domain.PageContent) ([]domain.PageMetadata, error) {
	if len(pages) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, page := range pages {
		snippet := page.Content
		if len(snippet) > 400 {
			snippet = snippet[:400]
		}
		fmt.Fprintf(&sb, "\n--- Item %d ---\nURL: %s\nTitle: %s\nContent: %s\n",
			i+1, page.URL, page.Title, strings.ReplaceAll(snippet, "\n", " "))
	}

	prompt := fmt.Sprintf(`Analyze each webpage below and return a JSON object with an "items" array, one entry per webpage, in the same order.
%s
Return a JSON object in this exact shape:
{"items": [{"title": "cleaned title", "summary": "2-3 sentence summary", "content_type": "Article|Tutorial|Documentation|News|Blog|Research", "key_topics": ["topic1", "topic2", "topic3"]}]}

The "items" array must have exactly %d entries.`, sb.String(), len(pages))

	var parsed struct {
		Items []enrichedItem `json:"items"`
	}
	if err := c.completeJSON(ctx, prompt, &parsed); err != nil {
		return nil, fmt.Errorf("enrich batch: %w", err)
	}

	metas := make([]domain.PageMetadata, len(pages))
	for i, page := range pages {
		if i >= len(parsed.Items) {
			metas[i] = extract.BasicMetadata(page)
			continue
		}
		metas[i] = toMetadata(parsed.Items[i], page)
	}
	return metas, nil
}

func toMetadata(item enrichedItem, page domain.PageContent) domain.PageMetadata {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = page.Title
	}
	if len(title) > 100 {
		title = title[:100]
	}

	summary := strings.TrimSpace(item.Summary)
	if len(summary) > 400 {
		summary = summary[:400]
	}
	if summary == "" {
		summary = extract.LeadingSummary(page.Content, page.Domain)
	}

	seen := make(map[string]bool)
	var topics []string
	for _, t := range item.KeyTopics {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] || len(topics) >= extract.MaxKeyTopics {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}

	return domain.PageMetadata{
		Title:       title,
		Summary:     summary,
		ContentType: domain.NormalizeContentType(item.ContentType),
		KeyTopics:   topics,
		Method:      domain.MethodAI,
	}
}

// Classify asks the model to group item references into at most
// maxClusters named clusters and returns the id to cluster-name mapping.
// Response validation (coverage, hallucinated ids) is the clusterer's job;
// this only rejects responses that are not the requested shape.
func (c *OpenAIClient) Classify(ctx context.Context, items []domain.ClusterItemRef, maxClusters int) (map[string]string, error) {
	if len(items) == 0 {
		return map[string]string{}, nil
	}

	nodes, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal cluster refs: %w", err)
	}

	prompt := fmt.Sprintf(`You are a knowledge graph architect. Group these content nodes into at most %d meaningful semantic clusters.

Rules:
- Cluster name: short label (2-4 words), e.g. "Python Programming".
- Every node must be in exactly one cluster.
- Base decisions on title and topics, not just keywords.

Nodes:
%s

Respond with a single JSON object:
{"clusters": [{"name": "Cluster Name", "node_ids": ["id1", "id2"]}]}`, maxClusters, nodes)

	var parsed struct {
		Clusters []struct {
			Name    string   `json:"name"`
			NodeIDs []string `json:"node_ids"`
		} `json:"clusters"`
	}
	if err := c.completeJSON(ctx, prompt, &parsed); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	if len(parsed.Clusters) == 0 {
		return nil, fmt.Errorf("classify: empty clusters in response")
	}

	labels := make(map[string]string)
	for i, cl := range parsed.Clusters {
		name := strings.TrimSpace(cl.Name)
		if name == "" {
			name = fmt.Sprintf("Cluster %d", i+1)
		}
		for _, id := range cl.NodeIDs {
			labels[id] = name
		}
	}
	return labels, nil
}

// completeJSON posts a single user message requesting a JSON object and
// decodes the first choice's content into out.
func (c *OpenAIClient) completeJSON(ctx context.Context, prompt string, out any) error {
	if c == nil {
		return fmt.Errorf("openai client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return fmt.Errorf("openai client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":           c.model,
		"temperature":     0.0,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return fmt.Errorf("decode completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return fmt.Errorf("empty completion")
	}

	content := stripFence(completion.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("parse completion JSON: %w", err)
	}
	return nil
}

// stripFence removes a ```json fence when a model wraps its output anyway.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
