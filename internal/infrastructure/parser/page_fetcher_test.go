package parser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"MindCanvas/internal/config"
	"MindCanvas/internal/domain"
)

func fetcherConfig() config.PipelineConfig {
	return config.PipelineConfig{
		MinContentLength: 30,
		MaxContentLength: 1500,
		ExcludedDomains:  []string{"google.com"},
	}
}

func TestFetchExtractsArticleContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<html>
		  <head><title>Go Concurrency Patterns | Some Site</title></head>
		  <body>
		    <nav>Home About Contact</nav>
		    <script>trackEverything();</script>
		    <article>Goroutines and channels let you structure concurrent programs clearly and safely.</article>
		    <footer>Copyright</footer>
		  </body>
		</html>`))
	}))
	defer server.Close()

	f := NewPageFetcher(server.Client(), fetcherConfig())
	page, err := f.Fetch(context.Background(), domain.HistoryEntry{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page == nil {
		t.Fatalf("expected page content")
	}

	if page.Title != "Go Concurrency Patterns" {
		t.Fatalf("unexpected title: %q", page.Title)
	}
	if !strings.Contains(page.Content, "Goroutines and channels") {
		t.Fatalf("article text missing: %q", page.Content)
	}
	for _, junk := range []string{"trackEverything", "Home About Contact", "Copyright"} {
		if strings.Contains(page.Content, junk) {
			t.Fatalf("boilerplate %q leaked into content", junk)
		}
	}
}

func TestFetchFallsBackToBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Plain</title></head><body>` +
			strings.Repeat("body text without any container element ", 3) +
			`</body></html>`))
	}))
	defer server.Close()

	f := NewPageFetcher(server.Client(), fetcherConfig())
	page, err := f.Fetch(context.Background(), domain.HistoryEntry{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if page == nil || !strings.Contains(page.Content, "body text") {
		t.Fatalf("expected body fallback, got %+v", page)
	}
}

func TestFetchContentLengthBounds(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 5000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/short":
			_, _ = w.Write([]byte(`<html><body><article>tiny</article></body></html>`))
		default:
			_, _ = w.Write([]byte(`<html><body><article>` + long + `</article></body></html>`))
		}
	}))
	defer server.Close()

	f := NewPageFetcher(server.Client(), fetcherConfig())

	page, err := f.Fetch(context.Background(), domain.HistoryEntry{URL: server.URL + "/short"})
	if err != nil {
		t.Fatalf("Fetch short: %v", err)
	}
	if page != nil {
		t.Fatalf("expected short page skipped, got %+v", page)
	}

	page, err = f.Fetch(context.Background(), domain.HistoryEntry{URL: server.URL + "/long"})
	if err != nil {
		t.Fatalf("Fetch long: %v", err)
	}
	if page == nil || len(page.Content) > 1500 {
		t.Fatalf("expected content truncated to 1500, got %d", len(page.Content))
	}
}

func TestFetchSkipsExcludedAndNonHTTP(t *testing.T) {
	t.Parallel()

	f := NewPageFetcher(&http.Client{}, fetcherConfig())

	for _, url := range []string{
		"https://www.google.com/search?q=go",
		"chrome://settings",
		"file:///etc/passwd",
		"not a url at all ://",
	} {
		page, err := f.Fetch(context.Background(), domain.HistoryEntry{URL: url})
		if err != nil {
			t.Fatalf("Fetch(%q) error: %v", url, err)
		}
		if page != nil {
			t.Fatalf("expected %q skipped", url)
		}
	}
}

func TestFetchErrorStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewPageFetcher(server.Client(), fetcherConfig())
	if _, err := f.Fetch(context.Background(), domain.HistoryEntry{URL: server.URL}); err == nil {
		t.Fatalf("expected error for 404 response")
	}
}

func TestCleanTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{"Article Name | Site", "Article Name"},
		{"Article Name - Site", "Article Name"},
		{"  Plain  ", "Plain"},
		{"", "Untitled"},
		{strings.Repeat("t", 150), strings.Repeat("t", 100)},
	}
	for _, tt := range tests {
		if got := cleanTitle(tt.raw); got != tt.want {
			t.Fatalf("cleanTitle(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
