// Package parser downloads pages and extracts their readable text with
// goquery.
package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"MindCanvas/internal/config"
	"MindCanvas/internal/domain"
	"MindCanvas/internal/ports"
)

// Containers tried in priority order before falling back to body text.
var contentSelectors = []string{"article", "main", ".content", ".post-content"}

// Suffixes commonly appended to page titles by sites.
var titleSeparators = []string{" | ", " - ", " – ", " — "}

// PageFetcher downloads a page and extracts title plus main text content.
// Pages on excluded domains, non-HTTP schemes, and pages with too little
// text all yield (nil, nil): skipped, not failed.
type PageFetcher struct {
	client          *http.Client
	excludedDomains map[string]bool
	minContent      int
	maxContent      int
}

var _ ports.PageFetcher = (*PageFetcher)(nil)

// NewPageFetcher wires an HTTP client; a nil client gets the configured
// fetch timeout.
func NewPageFetcher(client *http.Client, cfg config.PipelineConfig) *PageFetcher {
	if client == nil {
		timeout := cfg.FetchTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &PageFetcher{
		client:          client,
		excludedDomains: cfg.ExcludedDomainSet(),
		minContent:      cfg.MinContentLength,
		maxContent:      cfg.MaxContentLength,
	}
}

// Fetch downloads the entry's URL and extracts its text.
func (f *PageFetcher) Fetch(ctx context.Context, entry domain.HistoryEntry) (*domain.PageContent, error) {
	host, ok := f.eligibleHost(entry.URL)
	if !ok {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "MindCanvas/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	content := f.extractText(doc)
	if len(content) < f.minContent {
		return nil, nil
	}

	title := cleanTitle(doc.Find("title").First().Text())
	if title == "Untitled" && entry.Title != "" {
		title = cleanTitle(entry.Title)
	}

	return &domain.PageContent{
		URL:       entry.URL,
		Title:     title,
		Content:   content,
		Domain:    host,
		VisitedAt: entry.LastVisitTime,
	}, nil
}

// eligibleHost validates the scheme and checks the excluded-domain set,
// returning the normalized host.
func (f *PageFetcher) eligibleHost(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	if host == "" || f.excludedDomains[host] {
		return "", false
	}
	return host, true
}

func (f *PageFetcher) extractText(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, header, aside").Remove()

	var text string
	for _, selector := range contentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			text = sel.Text()
			break
		}
	}
	if strings.TrimSpace(text) == "" {
		text = doc.Find("body").Text()
	}

	text = strings.Join(strings.Fields(text), " ")
	if f.maxContent > 0 && len(text) > f.maxContent {
		text = text[:f.maxContent]
	}
	return text
}

// cleanTitle strips common site-name suffixes and caps length.
func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	for _, sep := range titleSeparators {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
		}
	}
	title = strings.TrimSpace(title)
	if len(title) > 100 {
		title = strings.TrimSpace(title[:100])
	}
	if title == "" {
		return "Untitled"
	}
	return title
}
