package extract

import (
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/FranksOps/serpent/internal/browser"
	"github.com/FranksOps/serpent/internal/serp"
)

// Extraction is the parsed view of one results page. A nil error with an
// empty Results slice means the page parsed but held no recognizable
// organic results; callers decide whether that is acceptable.
type Extraction struct {
	Results      []serp.Result
	Features     serp.Features
	TotalResults int64
	// Partial is set when some result containers were skipped because a
	// required field was missing or malformed.
	Partial bool
}

// Extract parses a captured results page with the engine's profile. A
// malformed result container is skipped, never fatal: the contract is to
// salvage everything that parses.
func Extract(page *browser.Page, profile *Profile, logger *slog.Logger) (*Extraction, error) {
	if logger == nil {
		logger = slog.Default()
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, err
	}

	ex := &Extraction{}
	sel := profile.Selectors

	position := 0
	doc.Find(sel.Result).Each(func(_ int, s *goquery.Selection) {
		res, ok := extractResult(s, sel, page.URL)
		if !ok {
			ex.Partial = true
			return
		}
		position++
		res.Position = position
		if sel.FeaturedSnippet != "" && s.Closest(sel.FeaturedSnippet).Length() > 0 {
			res.IsFeaturedSnippet = true
		}
		ex.Results = append(ex.Results, res)
	})

	ex.Features = extractFeatures(doc, sel)
	ex.TotalResults = ParseTotalResults(doc.Find(sel.TotalStats).First().Text())

	if ex.Partial {
		logger.Debug("skipped malformed result containers",
			"engine", profile.Engine,
			"kept", len(ex.Results))
	}
	return ex, nil
}

func extractResult(s *goquery.Selection, sel Selectors, pageURL string) (serp.Result, bool) {
	var res serp.Result

	res.Title = cleanText(s.Find(sel.Title).First().Text())
	if res.Title == "" {
		return res, false
	}

	href, ok := s.Find(sel.Link).First().Attr("href")
	if !ok {
		return res, false
	}
	resolved, ok := resolveResultURL(href, pageURL)
	if !ok {
		return res, false
	}
	res.URL = resolved
	res.Domain = domainOf(resolved)
	res.Snippet = cleanText(s.Find(sel.Snippet).First().Text())

	if sel.RichMeta != "" {
		if meta := s.Find(sel.RichMeta).First(); meta.Length() > 0 {
			res.IsRichSnippet = true
			res.StructuredData = map[string]string{"meta": cleanText(meta.Text())}
			if label, ok := meta.Find("[aria-label]").First().Attr("aria-label"); ok {
				res.StructuredData["label"] = cleanText(label)
			}
		}
	}
	if cite := cleanText(s.Find("cite").First().Text()); cite != "" {
		if res.StructuredData == nil {
			res.StructuredData = map[string]string{}
		}
		res.StructuredData["cite"] = cite
	}
	return res, true
}

// resolveResultURL filters organic links by URL shape: tracking redirects
// are unwrapped, and anything that is not an absolute http(s) link to an
// external page is rejected.
func resolveResultURL(href, pageURL string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return "", false
	}
	if strings.HasPrefix(href, "/url?") {
		href = unwrapRedirect(href)
	}
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if !u.IsAbs() {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if page, err := url.Parse(pageURL); err == nil && u.Hostname() == page.Hostname() {
		return "", false
	}
	return u.String(), true
}

func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if q := u.Query().Get("q"); q != "" {
		return q
	}
	if q := u.Query().Get("url"); q != "" {
		return q
	}
	return href
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func extractFeatures(doc *goquery.Document, sel Selectors) serp.Features {
	var ft serp.Features

	if sel.FeaturedSnippet != "" {
		if block := doc.Find(sel.FeaturedSnippet).First(); block.Length() > 0 {
			fs := &serp.FeaturedSnippet{
				Title:   cleanText(block.Find(sel.FeaturedTitle).First().Text()),
				Snippet: cleanText(block.Find(sel.FeaturedText).First().Text()),
			}
			if fs.Title != "" || fs.Snippet != "" {
				ft.FeaturedSnippet = fs
			}
		}
	}

	doc.Find(sel.PeopleAlsoAsk).Each(func(_ int, s *goquery.Selection) {
		if q := cleanText(s.Text()); q != "" {
			ft.PeopleAlsoAsk = append(ft.PeopleAlsoAsk, q)
		}
	})

	seen := map[string]bool{}
	doc.Find(sel.RelatedSearches).Each(func(_ int, s *goquery.Selection) {
		q := cleanText(s.Text())
		if q == "" || seen[q] {
			return
		}
		seen[q] = true
		ft.RelatedSearches = append(ft.RelatedSearches, q)
	})

	if sel.KnowledgePanel != "" {
		if panel := doc.Find(sel.KnowledgePanel).First(); panel.Length() > 0 {
			ft.KnowledgePanel = &serp.KnowledgePanel{
				Present: true,
				Summary: cleanText(panel.Find(sel.KnowledgeText).First().Text()),
			}
		}
	}
	return ft
}

// ParseTotalResults pulls the first number out of a result-stats string
// like "About 1,234,000 results (0.42 seconds)". Separators vary by
// locale, so every grouping rune is tolerated. Unparseable input yields 0.
func ParseTotalResults(text string) int64 {
	for _, field := range strings.Fields(text) {
		digits := strings.Map(func(r rune) rune {
			switch {
			case unicode.IsDigit(r):
				return r
			case r == ',' || r == '.' || r == ' ' || r == ' ':
				return -1
			default:
				return r
			}
		}, field)
		n, err := strconv.ParseInt(digits, 10, 64)
		if err != nil {
			continue
		}
		return n
	}
	return 0
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
