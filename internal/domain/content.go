package domain

import "time"

// ContentItem is the core entity describing one ingested, scored page.
type ContentItem struct {
	ID               string
	URL              string
	Title            string
	Content          string
	Summary          string
	ContentType      ContentType
	KeyTopics        []string
	QualityScore     int
	ProcessingMethod ProcessingMethod
	Embedding        []float64
	ContentHash      string
	VisitTimestamp   time.Time
	CreatedAt        time.Time
}

// HasEmbedding reports whether a non-empty vector is attached.
func (c ContentItem) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// PrimaryTopic returns the first key topic, or "" when none exist.
func (c ContentItem) PrimaryTopic() string {
	if len(c.KeyTopics) == 0 {
		return ""
	}
	return c.KeyTopics[0]
}

// ContentType enumerates the fixed page categories.
type ContentType string

const (
	TypeTutorial      ContentType = "Tutorial"
	TypeDocumentation ContentType = "Documentation"
	TypeArticle       ContentType = "Article"
	TypeBlog          ContentType = "Blog"
	TypeResearch      ContentType = "Research"
	TypeNews          ContentType = "News"
	TypeWebContent    ContentType = "Web Content"
)

// KnownContentTypes lists every valid ContentType value.
var KnownContentTypes = []ContentType{
	TypeTutorial, TypeDocumentation, TypeArticle,
	TypeBlog, TypeResearch, TypeNews, TypeWebContent,
}

// NormalizeContentType maps free-form labels onto the fixed enumeration,
// defaulting to "Web Content" for anything unrecognized.
func NormalizeContentType(raw string) ContentType {
	for _, ct := range KnownContentTypes {
		if string(ct) == raw {
			return ct
		}
	}
	return TypeWebContent
}

// ProcessingMethod tags which extractor/cluster path produced an item's
// metadata. Observability only; never used for logic branching beyond
// clustering strategy reporting.
type ProcessingMethod string

const (
	MethodAI        ProcessingMethod = "ai"
	MethodBasic     ProcessingMethod = "basic"
	MethodEmbedding ProcessingMethod = "embedding"
	MethodFallback  ProcessingMethod = "fallback"
)

// DefaultQualityScore is used when no quality signal exists.
const DefaultQualityScore = 5

// GeneralClusterLabel is the catch-all cluster for unclassifiable items.
const GeneralClusterLabel = "General"

// Cluster is a named, non-overlapping group of related items. Clusters are
// recomputed on demand from the current item set and never persisted.
type Cluster struct {
	Label               string
	MemberIDs           []string
	RepresentativeTerms []string
}

// ScoredItem pairs an item with its similarity to a query vector.
type ScoredItem struct {
	Item       ContentItem
	Similarity float64
}

// HistoryEntry is one raw browser-history record handed to the ingest
// pipeline before any fetching or extraction has happened.
type HistoryEntry struct {
	URL           string
	Title         string
	LastVisitTime time.Time
}

// PageContent holds extracted text for a single fetched page.
type PageContent struct {
	URL       string
	Title     string
	Content   string
	Domain    string
	VisitedAt time.Time
}

// PageMetadata is the enriched description of a page, produced either by
// the LLM enricher or by the rule-based extractor.
type PageMetadata struct {
	Title       string
	Summary     string
	ContentType ContentType
	KeyTopics   []string
	Method      ProcessingMethod
}

// ClusterItemRef is the minimal item projection sent to the LLM clustering
// capability: identifier plus just enough text to group by.
type ClusterItemRef struct {
	ID     string
	Title  string
	Topics []string
}
