package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/serpent/pkg/identity"
)

func TestHTTPDriver_Navigate(t *testing.T) {
	var gotUA, gotLang string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>results</h1></body></html>"))
	}))
	defer ts.Close()

	id := identity.Identity{UserAgent: "test-agent/1.0", Locale: "en-US"}
	driver := NewHTTPDriver(HTTPConfig{})

	sess, err := driver.NewSession(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error creating session: %v", err)
	}
	defer sess.Close()

	if sess.ID() == "" {
		t.Error("expected non-empty session id")
	}

	page, err := sess.Navigate(context.Background(), ts.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected navigate error: %v", err)
	}

	if page.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", page.StatusCode)
	}
	if !strings.Contains(page.HTML, "<h1>results</h1>") {
		t.Errorf("expected body HTML, got %q", page.HTML)
	}
	if gotUA != "test-agent/1.0" {
		t.Errorf("expected identity user-agent, got %q", gotUA)
	}
	if !strings.HasPrefix(gotLang, "en-US") {
		t.Errorf("expected Accept-Language from locale, got %q", gotLang)
	}
}

func TestHTTPDriver_NavigateTimeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	driver := NewHTTPDriver(HTTPConfig{})
	sess, err := driver.NewSession(context.Background(), identity.Identity{UserAgent: "t", Locale: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sess.Close()

	_, err = sess.Navigate(context.Background(), ts.URL, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestHTTPDriver_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>landed</html>"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	driver := NewHTTPDriver(HTTPConfig{MaxRedirects: 3})
	sess, _ := driver.NewSession(context.Background(), identity.Identity{UserAgent: "t", Locale: "en"})
	defer sess.Close()

	page, err := sess.Navigate(context.Background(), ts.URL+"/start", 5*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(page.URL, "/final") {
		t.Errorf("expected final URL after redirect, got %s", page.URL)
	}
}

func TestPrimaryLanguage(t *testing.T) {
	if got := primaryLanguage("en-US"); got != "en" {
		t.Errorf("expected en, got %s", got)
	}
	if got := primaryLanguage("de"); got != "de" {
		t.Errorf("expected de, got %s", got)
	}
}
