package extract

import (
	"fmt"
	"net/url"
	"time"

	"github.com/FranksOps/serpent/internal/serp"
)

// Selectors is the declarative selector map for one engine. Alternates are
// expressed as CSS selector groups (comma-separated), so layout drift is a
// data change, not a code change.
type Selectors struct {
	// Organic results
	Result  string
	Title   string
	Link    string
	Snippet string

	// Rich-result metadata inside a result container (ratings, breadcrumbs).
	RichMeta string

	// Page features
	FeaturedSnippet string
	FeaturedTitle   string
	FeaturedText    string
	PeopleAlsoAsk   string
	RelatedSearches string
	KnowledgePanel  string
	KnowledgeText   string

	// Free-text result stats ("About 1,234,000 results").
	TotalStats string
}

// Profile describes how to query and parse one search engine. Adding an
// engine means registering a profile, never branching extraction logic.
type Profile struct {
	Engine   serp.Engine
	BaseURL  string
	CacheTTL time.Duration
	// NeedsBrowser marks engines whose SERP requires JavaScript rendering.
	NeedsBrowser bool
	Selectors    Selectors
}

// SearchURL builds the results-page URL for a query.
func (p *Profile) SearchURL(q serp.Query) string {
	params := url.Values{}
	params.Set("q", q.Keyword)
	switch p.Engine {
	case serp.EngineBing:
		if q.Language != "" {
			params.Set("setlang", q.Language)
		}
		if q.Country != "" {
			params.Set("cc", q.Country)
		}
	default:
		if q.Language != "" {
			params.Set("hl", q.Language)
		}
		if q.Country != "" {
			params.Set("gl", q.Country)
		}
	}
	return p.BaseURL + "?" + params.Encode()
}

// googleProfile covers the classic desktop results layout.
var googleProfile = &Profile{
	Engine:       serp.EngineGoogle,
	BaseURL:      "https://www.google.com/search",
	CacheTTL:     6 * time.Hour,
	NeedsBrowser: true,
	Selectors: Selectors{
		Result:          "div.g, div[data-sokoban-container]",
		Title:           "h3",
		Link:            "a[href]",
		Snippet:         "div.VwiC3b, div.IsZvec, span.aCOpRe",
		RichMeta:        "div.fG8Fp, span.Z26q7c",
		FeaturedSnippet: "block-component, div.xpdopen",
		FeaturedTitle:   "h3, div.LC20lb",
		FeaturedText:    "div.hgKElc, span.hgKElc",
		PeopleAlsoAsk:   "div.related-question-pair",
		RelatedSearches: "div.s75CSd, a.k8XOCe, div#brs a",
		KnowledgePanel:  "div.kp-wholepage, div.knowledge-panel",
		KnowledgeText:   "div.kno-rdesc span, div.kno-rdesc",
		TotalStats:      "#result-stats",
	},
}

// bingProfile covers the static desktop layout, which renders without JS.
var bingProfile = &Profile{
	Engine:   serp.EngineBing,
	BaseURL:  "https://www.bing.com/search",
	CacheTTL: 6 * time.Hour,
	Selectors: Selectors{
		Result:          "li.b_algo",
		Title:           "h2",
		Link:            "h2 a[href]",
		Snippet:         "div.b_caption p, p.b_paractl, p",
		RichMeta:        "div.b_factrow",
		FeaturedSnippet: "div.b_ans.b_top",
		FeaturedTitle:   "h2",
		FeaturedText:    "div.b_focusTextLarge, div.rwrl_padref, p",
		PeopleAlsoAsk:   "div.df_qntext",
		RelatedSearches: "ol#b_context li.b_ans ul.b_vList li a, div.b_rs ul li a",
		KnowledgePanel:  "div.b_entityTP",
		KnowledgeText:   "div.b_entityTP div.b_snippet, div.b_entityTP p",
		TotalStats:      "span.sb_count",
	},
}

// Profiles returns the built-in engine registry.
func Profiles() map[serp.Engine]*Profile {
	return map[serp.Engine]*Profile{
		serp.EngineGoogle: googleProfile,
		serp.EngineBing:   bingProfile,
	}
}

// Lookup resolves a profile by engine tag.
func Lookup(engine serp.Engine) (*Profile, error) {
	p, ok := Profiles()[engine]
	if !ok {
		return nil, fmt.Errorf("no profile registered for engine %q", engine)
	}
	return p, nil
}
