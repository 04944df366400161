package serpcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FranksOps/serpent/internal/serp"
)

type failingStore struct {
	getErr error
	setErr error
}

func (f *failingStore) Get(context.Context, string) ([]byte, error) { return nil, f.getErr }
func (f *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return f.setErr
}
func (f *failingStore) Delete(context.Context, string) error { return errors.New("delete failed") }
func (f *failingStore) Close() error                         { return nil }

func testQuery() serp.Query {
	return serp.Query{Keyword: "coffee grinder", Country: "us", Language: "en", Engine: serp.EngineGoogle}
}

func testDocument(q serp.Query) *serp.Document {
	return &serp.Document{
		Query:        q,
		TotalResults: 42,
		Results: []serp.Result{
			{Title: "A grinder", URL: "https://example.com/grinder", Position: 1, Domain: "example.com"},
		},
		ScrapedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestCacheRoundTrip(t *testing.T) {
	c := New(NewMemoryStore(16, time.Hour), nil)
	defer c.Close()

	ctx := context.Background()
	q := testQuery()

	if _, ok := c.Get(ctx, q); ok {
		t.Fatal("expected a miss on an empty cache")
	}

	doc := testDocument(q)
	c.Set(ctx, q, doc, time.Hour)

	got, ok := c.Get(ctx, q)
	if !ok {
		t.Fatal("expected a hit after Set")
	}
	if got.TotalResults != doc.TotalResults {
		t.Errorf("TotalResults = %d, want %d", got.TotalResults, doc.TotalResults)
	}
	if len(got.Results) != 1 || got.Results[0].URL != doc.Results[0].URL {
		t.Errorf("results did not survive the round trip: %+v", got.Results)
	}
}

func TestKeyNormalization(t *testing.T) {
	base := serp.Query{Keyword: "Best Coffee", Country: "US", Language: "en", Engine: serp.EngineGoogle}
	same := serp.Query{Keyword: "  best coffee ", Country: "us", Language: "EN", Engine: serp.EngineGoogle}

	if Key(base) != Key(same) {
		t.Error("case and whitespace variants should share a key")
	}

	other := base
	other.Country = "de"
	if Key(base) == Key(other) {
		t.Error("different countries must not collide")
	}

	bing := base
	bing.Engine = serp.EngineBing
	if Key(base) == Key(bing) {
		t.Error("different engines must not collide")
	}
}

func TestKeyFieldBoundaries(t *testing.T) {
	a := serp.Query{Keyword: "ab", Country: "c", Engine: serp.EngineGoogle}
	b := serp.Query{Keyword: "a", Country: "bc", Engine: serp.EngineGoogle}
	if Key(a) == Key(b) {
		t.Error("field contents must not bleed across boundaries")
	}
}

func TestCacheDegradesOnStoreFailure(t *testing.T) {
	c := New(&failingStore{
		getErr: errors.New("backend down"),
		setErr: errors.New("backend down"),
	}, nil)

	ctx := context.Background()
	q := testQuery()

	if _, ok := c.Get(ctx, q); ok {
		t.Error("a failing read must present as a miss")
	}

	// Must not panic or propagate the error.
	c.Set(ctx, q, testDocument(q), time.Hour)

	err := c.Invalidate(ctx, q)
	var unavailable serp.CacheUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("Invalidate error = %v, want CacheUnavailableError", err)
	}
}

type pruningStore struct {
	failingStore
	pruned   int64
	pruneErr error
}

func (p *pruningStore) Prune(context.Context) (int64, error) { return p.pruned, p.pruneErr }

func TestCachePrune(t *testing.T) {
	ctx := context.Background()

	c := New(&pruningStore{pruned: 7}, nil)
	n, err := c.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 7 {
		t.Errorf("Prune() = %d, want 7", n)
	}

	c = New(&pruningStore{pruneErr: errors.New("backend down")}, nil)
	_, err = c.Prune(ctx)
	var unavailable serp.CacheUnavailableError
	if !errors.As(err, &unavailable) {
		t.Errorf("Prune error = %v, want CacheUnavailableError", err)
	}

	// Stores without bulk expiry report zero.
	c = New(NewMemoryStore(16, time.Hour), nil)
	n, err = c.Prune(ctx)
	if err != nil || n != 0 {
		t.Errorf("Prune() on memory store = %d, %v; want 0, nil", n, err)
	}
}

func TestCacheCorruptEntryIsMiss(t *testing.T) {
	store := NewMemoryStore(16, time.Hour)
	c := New(store, nil)

	ctx := context.Background()
	q := testQuery()
	if err := store.Set(ctx, Key(q), []byte("{not json"), time.Hour); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if _, ok := c.Get(ctx, q); ok {
		t.Error("a corrupt entry must present as a miss")
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	store := NewMemoryStore(16, time.Hour)
	current := time.Now()
	store.now = func() time.Time { return current }

	ctx := context.Background()
	if err := store.Set(ctx, "k", []byte("v"), 10*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get(ctx, "k")
	if err != nil || got == nil {
		t.Fatalf("Get() = %v, %v; want live entry", got, err)
	}

	current = current.Add(11 * time.Minute)
	got, err = store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != nil {
		t.Error("entry should have expired")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore(16, time.Hour)
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got, _ := store.Get(ctx, "k"); got != nil {
		t.Error("entry should be gone after Delete")
	}
}
