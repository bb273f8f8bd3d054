// Package extract implements the deterministic, rule-based content scorer.
// It is the always-available fallback signal when no LLM is reachable:
// pure functions, no network, never an error for malformed input.
package extract

import (
	"sort"
	"strings"

	"MindCanvas/internal/domain"
)

// MaxKeyTopics caps the topic list so cluster keys stay stable.
const MaxKeyTopics = 5

const minUsefulContent = 30

// Result carries the rule-based metadata for one page.
type Result struct {
	QualityScore int
	ContentType  domain.ContentType
	KeyTopics    []string
}

// domainKeywords is the table of known technical topics. Multi-word entries
// are matched as substrings of the lowercased text.
var domainKeywords = []string{
	"machine learning", "deep learning", "data science", "neural network",
	"python", "javascript", "typescript", "golang", "rust", "java",
	"react", "kubernetes", "docker", "linux", "database", "postgres",
	"security", "cloud", "devops", "testing", "algorithms", "frontend",
	"backend", "api", "ai",
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "is": true,
	"it": true, "and": true, "or": true, "with": true, "from": true,
	"by": true, "this": true, "that": true, "as": true, "be": true,
	"are": true, "was": true, "you": true, "your": true, "we": true,
	"can": true, "will": true, "not": true, "have": true, "has": true,
	"but": true, "they": true, "their": true, "its": true, "into": true,
	"about": true, "more": true, "when": true, "how": true, "what": true,
}

// Extract computes quality score, content type and key topics from page
// text. Empty input yields defaults (score 5, "Web Content", no topics).
func Extract(title, url, content string) Result {
	return Result{
		QualityScore: QualityScore(title, url, content),
		ContentType:  ContentTypeOf(title, url, content),
		KeyTopics:    KeyTopics(title, content),
	}
}

// QualityScore scales signal strength into 1-10. 5 means no signal.
func QualityScore(title, url, content string) int {
	if strings.TrimSpace(content) == "" && strings.TrimSpace(title) == "" {
		return domain.DefaultQualityScore
	}

	score := domain.DefaultQualityScore
	if len(title) > 10 {
		score++
	}
	if len(content) > 200 {
		score++
	}
	if len(content) > 500 {
		score++
	}

	lowerURL := strings.ToLower(url)
	for _, cue := range []string{"tutorial", "guide", "docs"} {
		if strings.Contains(lowerURL, cue) {
			score++
			break
		}
	}

	if content != "" && len(content) < minUsefulContent {
		score -= 2
	}

	if vocabularyDiversity(content) {
		score++
	}

	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

// vocabularyDiversity reports whether the text is long enough and varied
// enough to suggest substantive writing rather than boilerplate.
func vocabularyDiversity(content string) bool {
	words := strings.Fields(strings.ToLower(content))
	if len(words) < 50 {
		return false
	}
	unique := make(map[string]bool, len(words))
	for _, w := range words {
		unique[w] = true
	}
	return float64(len(unique))/float64(len(words)) > 0.5
}

// ContentTypeOf infers the page category from title/URL/content cues.
// Always returns a member of the fixed enumeration; "Web Content" when no
// rule matches.
func ContentTypeOf(title, url, content string) domain.ContentType {
	probe := strings.ToLower(title + " " + url)

	switch {
	case containsAny(probe, "tutorial", "how to", "getting started", "guide"):
		return domain.TypeTutorial
	case containsAny(probe, "docs", "documentation", "reference", "/api/"):
		return domain.TypeDocumentation
	case containsAny(probe, "arxiv", "paper", "research", "study"):
		return domain.TypeResearch
	case containsAny(probe, "/blog/", "blog."):
		return domain.TypeBlog
	case containsAny(probe, "news", "announcement", "release"):
		return domain.TypeNews
	case containsAny(probe, "article", "/posts/", "medium.com"):
		return domain.TypeArticle
	default:
		return domain.TypeWebContent
	}
}

func containsAny(s string, cues ...string) bool {
	for _, cue := range cues {
		if strings.Contains(s, cue) {
			return true
		}
	}
	return false
}

// KeyTopics extracts up to MaxKeyTopics lowercased, de-duplicated topic
// strings: domain keyword hits first, then the most frequent non-stopword
// terms. Deterministic for identical input.
func KeyTopics(title, content string) []string {
	text := strings.ToLower(title + " " + content)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	seen := make(map[string]bool)
	var topics []string
	for _, kw := range domainKeywords {
		if len(topics) >= MaxKeyTopics {
			return topics
		}
		if strings.Contains(text, kw) && !seen[kw] {
			seen[kw] = true
			topics = append(topics, kw)
		}
	}

	for _, term := range frequentTerms(text, MaxKeyTopics-len(topics), seen) {
		topics = append(topics, term)
	}
	return topics
}

// frequentTerms returns the top-n non-stopword tokens by frequency.
// Ties break alphabetically so repeated runs agree.
func frequentTerms(text string, n int, exclude map[string]bool) []string {
	if n <= 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, w := range strings.Fields(text) {
		w = strings.Trim(w, ".,:;!?()[]{}\"'`")
		if len(w) < 4 || stopwords[w] || exclude[w] {
			continue
		}
		counts[w]++
	}

	type termCount struct {
		term  string
		count int
	}
	ranked := make([]termCount, 0, len(counts))
	for term, count := range counts {
		if count < 2 {
			continue
		}
		ranked = append(ranked, termCount{term, count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].term < ranked[j].term
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	terms := make([]string, 0, len(ranked))
	for _, tc := range ranked {
		terms = append(terms, tc.term)
	}
	return terms
}

// BasicMetadata builds full page metadata from the rule-based extractor
// alone, used when the LLM enricher is absent or failing.
func BasicMetadata(page domain.PageContent) domain.PageMetadata {
	res := Extract(page.Title, page.URL, page.Content)
	return domain.PageMetadata{
		Title:       page.Title,
		Summary:     LeadingSummary(page.Content, page.Domain),
		ContentType: res.ContentType,
		KeyTopics:   res.KeyTopics,
		Method:      domain.MethodBasic,
	}
}

// LeadingSummary takes the first sentence or two of the content, capped at
// 200 characters, falling back to a domain mention.
func LeadingSummary(content, domainName string) string {
	sentences := strings.SplitN(content, ".", 3)
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}
	var parts []string
	for _, s := range sentences {
		if t := strings.TrimSpace(s); t != "" {
			parts = append(parts, t)
		}
	}
	summary := strings.Join(parts, ". ")
	if len(summary) > 200 {
		summary = summary[:200]
	}
	if summary == "" && domainName != "" {
		return "Content from " + domainName
	}
	return summary
}
