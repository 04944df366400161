package extract

import (
	"testing"
	"time"

	"github.com/FranksOps/serpent/internal/browser"
	"github.com/FranksOps/serpent/internal/serp"
)

const googleFixture = `<!DOCTYPE html><html><body>
<div id="result-stats">About 1,234,000 results (0.42 seconds)</div>
<block-component>
  <h3>What is a capybara</h3>
  <div class="hgKElc">The capybara is the largest living rodent.</div>
</block-component>
<div id="search">
  <div class="g">
    <a href="/url?q=https://example.com/one&amp;sa=U"><h3>First result</h3></a>
    <cite>example.com &gt; one</cite>
    <div class="VwiC3b">Snippet for the first result.</div>
  </div>
  <div class="g">
    <a href="https://www.another.org/page"><h3>Second result</h3></a>
    <div class="VwiC3b">Second snippet.</div>
    <div class="fG8Fp"><span aria-label="Rated 4.5 out of 5">4.5</span></div>
  </div>
  <div class="g">
    <a href="#"><h3>Broken anchor</h3></a>
  </div>
  <div class="g">
    <a href="/search?q=internal"><h3>Internal link</h3></a>
  </div>
  <div class="g">
    <a href="https://third.example.net/deep/path"><h3>Third result</h3></a>
  </div>
</div>
<div class="related-question-pair">How long do capybaras live?</div>
<div class="related-question-pair">Are capybaras friendly?</div>
<div id="brs"><a>capybara habitat</a><a>capybara diet</a><a>capybara habitat</a></div>
<div class="kp-wholepage"><div class="kno-rdesc"><span>The capybara is a giant cavy rodent.</span></div></div>
</body></html>`

const bingFixture = `<!DOCTYPE html><html><body>
<span class="sb_count">2.340.000 Ergebnisse</span>
<ol id="b_results">
  <li class="b_algo">
    <h2><a href="https://docs.example.com/start">Getting started</a></h2>
    <div class="b_caption"><p>Install guide and first steps.</p></div>
  </li>
  <li class="b_algo">
    <h2><a href="javascript:void(0)">Script link</a></h2>
  </li>
  <li class="b_algo">
    <h2><a href="http://blog.example.org/post">A blog post</a></h2>
    <div class="b_caption"><p>Post snippet.</p></div>
    <div class="b_factrow">Jan 5, 2026</div>
  </li>
</ol>
<div class="b_rs"><ul><li><a>related one</a></li><li><a>related two</a></li></ul></div>
</body></html>`

func googlePage(html string) *browser.Page {
	return &browser.Page{
		URL:        "https://www.google.com/search?q=capybara",
		HTML:       html,
		StatusCode: 200,
		FetchedAt:  time.Now(),
	}
}

func TestExtractGoogle(t *testing.T) {
	ex, err := Extract(googlePage(googleFixture), googleProfile, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(ex.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(ex.Results))
	}
	if !ex.Partial {
		t.Error("expected Partial for skipped malformed containers")
	}

	first := ex.Results[0]
	if first.URL != "https://example.com/one" {
		t.Errorf("redirect not unwrapped: %q", first.URL)
	}
	if first.Domain != "example.com" {
		t.Errorf("Domain = %q, want example.com", first.Domain)
	}
	if first.Snippet != "Snippet for the first result." {
		t.Errorf("Snippet = %q", first.Snippet)
	}
	if first.StructuredData["cite"] != "example.com > one" {
		t.Errorf("cite = %q", first.StructuredData["cite"])
	}

	second := ex.Results[1]
	if !second.IsRichSnippet {
		t.Error("second result should be a rich snippet")
	}
	if second.StructuredData["label"] != "Rated 4.5 out of 5" {
		t.Errorf("label = %q", second.StructuredData["label"])
	}

	for i, r := range ex.Results {
		if r.Position != i+1 {
			t.Errorf("Position[%d] = %d, want %d", i, r.Position, i+1)
		}
	}

	if ex.TotalResults != 1234000 {
		t.Errorf("TotalResults = %d, want 1234000", ex.TotalResults)
	}
}

func TestExtractGoogleFeatures(t *testing.T) {
	ex, err := Extract(googlePage(googleFixture), googleProfile, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	fs := ex.Features.FeaturedSnippet
	if fs == nil {
		t.Fatal("expected a featured snippet")
	}
	if fs.Title != "What is a capybara" {
		t.Errorf("featured title = %q", fs.Title)
	}
	if fs.Snippet != "The capybara is the largest living rodent." {
		t.Errorf("featured snippet = %q", fs.Snippet)
	}

	if got := len(ex.Features.PeopleAlsoAsk); got != 2 {
		t.Errorf("PeopleAlsoAsk len = %d, want 2", got)
	}
	if got := len(ex.Features.RelatedSearches); got != 2 {
		t.Errorf("RelatedSearches len = %d, want 2 (deduplicated)", got)
	}

	kp := ex.Features.KnowledgePanel
	if kp == nil || !kp.Present {
		t.Fatal("expected a knowledge panel")
	}
	if kp.Summary != "The capybara is a giant cavy rodent." {
		t.Errorf("knowledge summary = %q", kp.Summary)
	}
}

func TestExtractBing(t *testing.T) {
	page := &browser.Page{
		URL:        "https://www.bing.com/search?q=example",
		HTML:       bingFixture,
		StatusCode: 200,
		FetchedAt:  time.Now(),
	}
	ex, err := Extract(page, bingProfile, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(ex.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(ex.Results))
	}
	if ex.Results[0].Position != 1 || ex.Results[1].Position != 2 {
		t.Errorf("positions not contiguous: %d, %d",
			ex.Results[0].Position, ex.Results[1].Position)
	}
	if !ex.Results[1].IsRichSnippet {
		t.Error("factrow result should be a rich snippet")
	}
	if ex.TotalResults != 2340000 {
		t.Errorf("TotalResults = %d, want 2340000", ex.TotalResults)
	}
	if got := len(ex.Features.RelatedSearches); got != 2 {
		t.Errorf("RelatedSearches len = %d, want 2", got)
	}
}

func TestExtractEmptyPage(t *testing.T) {
	ex, err := Extract(googlePage("<html><body></body></html>"), googleProfile, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(ex.Results) != 0 {
		t.Errorf("got %d results, want 0", len(ex.Results))
	}
	if ex.TotalResults != 0 {
		t.Errorf("TotalResults = %d, want 0", ex.TotalResults)
	}
}

func TestParseTotalResults(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"About 1,234,000 results (0.42 seconds)", 1234000},
		{"Ungefähr 2.340.000 Ergebnisse", 2340000},
		{"42 results", 42},
		{"no numbers here", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := ParseTotalResults(tc.in); got != tc.want {
			t.Errorf("ParseTotalResults(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestSearchURL(t *testing.T) {
	q := serp.Query{Keyword: "best coffee", Country: "de", Language: "de", Engine: serp.EngineGoogle}
	got := googleProfile.SearchURL(q)
	want := "https://www.google.com/search?gl=de&hl=de&q=best+coffee"
	if got != want {
		t.Errorf("SearchURL() = %q, want %q", got, want)
	}

	q.Engine = serp.EngineBing
	got = bingProfile.SearchURL(q)
	want = "https://www.bing.com/search?cc=de&q=best+coffee&setlang=de"
	if got != want {
		t.Errorf("SearchURL() = %q, want %q", got, want)
	}
}

func TestLookup(t *testing.T) {
	if _, err := Lookup(serp.EngineGoogle); err != nil {
		t.Errorf("Lookup(google) error = %v", err)
	}
	if _, err := Lookup(serp.Engine("altavista")); err == nil {
		t.Error("Lookup(altavista) expected error")
	}
}
