package serp

import (
	"strings"
	"time"
)

// Engine identifies a supported search engine.
type Engine string

const (
	EngineGoogle Engine = "google"
	EngineBing   Engine = "bing"
)

// Query identifies one unit of scrape work. It is also the cache identity:
// two queries that normalize to the same keyword share a cache entry.
type Query struct {
	Keyword  string `json:"keyword"`
	Country  string `json:"country"`
	Language string `json:"language"`
	Engine   Engine `json:"engine"`
}

// Normalized returns the query with the keyword trimmed and case-folded,
// which is the form used for cache keys and batch de-duplication.
func (q Query) Normalized() Query {
	q.Keyword = strings.ToLower(strings.TrimSpace(q.Keyword))
	q.Country = strings.ToLower(strings.TrimSpace(q.Country))
	q.Language = strings.ToLower(strings.TrimSpace(q.Language))
	return q
}

// Result is one organic result extracted from a results page.
// Position is 1-based and unique within its Document, in DOM order.
type Result struct {
	Title             string            `json:"title"`
	URL               string            `json:"url"`
	Snippet           string            `json:"snippet"`
	Position          int               `json:"position"`
	Domain            string            `json:"domain"`
	IsFeaturedSnippet bool              `json:"is_featured_snippet"`
	IsRichSnippet     bool              `json:"is_rich_snippet"`
	StructuredData    map[string]string `json:"structured_data,omitempty"`
}

// FeaturedSnippet is the promoted answer box shown above organic results.
type FeaturedSnippet struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// KnowledgePanel is the entity panel shown alongside results.
type KnowledgePanel struct {
	Present bool   `json:"present"`
	Summary string `json:"summary"`
}

// Features holds the non-organic page features. Every field is optional;
// an absent feature is a normal outcome, not an extraction failure.
type Features struct {
	FeaturedSnippet *FeaturedSnippet `json:"featured_snippet,omitempty"`
	PeopleAlsoAsk   []string         `json:"people_also_ask,omitempty"`
	RelatedSearches []string         `json:"related_searches,omitempty"`
	KnowledgePanel  *KnowledgePanel  `json:"knowledge_panel,omitempty"`
}

// Document is the canonical output of one scrape (or one cache hit).
// It is immutable after creation. An empty Results slice is valid: a page
// with zero organic results is a legitimate document.
type Document struct {
	Query        Query     `json:"query"`
	TotalResults int64     `json:"total_results"`
	Results      []Result  `json:"results"`
	Features     Features  `json:"features"`
	ScrapedAt    time.Time `json:"scraped_at"`
	SourceURL    string    `json:"source_url"`
}

// Outcome is the terminal status of one query within a batch: either a
// document or the failure that stopped it, never both.
type Outcome struct {
	Document *Document `json:"document,omitempty"`
	Err      error     `json:"-"`
	Reason   string    `json:"reason,omitempty"`
}

// BatchResult aggregates one outcome per distinct query. Queries are keyed
// in normalized form; callers get exactly one terminal entry per query.
type BatchResult struct {
	Statuses    map[Query]*Outcome `json:"statuses"`
	StartedAt   time.Time          `json:"started_at"`
	CompletedAt time.Time          `json:"completed_at"`
}

// Succeeded returns the number of queries that produced a document.
func (b *BatchResult) Succeeded() int {
	n := 0
	for _, o := range b.Statuses {
		if o != nil && o.Document != nil {
			n++
		}
	}
	return n
}

// Failed returns the number of queries that ended in a failure.
func (b *BatchResult) Failed() int {
	return len(b.Statuses) - b.Succeeded()
}
