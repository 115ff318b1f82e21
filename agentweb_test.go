package agentweb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/clark235/agentweb/internal/cache"
)

func TestDetectSPAPassthrough(t *testing.T) {
	r := DetectSPA(`<body><div id="root"></div></body>`)
	if !r.IsSPA {
		t.Fatalf("expected SPA detection, got %#v", r)
	}
}

func TestRenderStaticPageNoCache(t *testing.T) {
	html := `<html><head><title>Hello</title></head><body>
<main><h1>Hello</h1><p>This is a perfectly ordinary static page with enough
text to avoid looking like an SPA to the heuristic detector.</p></main>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	}))
	defer srv.Close()

	o := New(nil)
	result, err := o.Render(context.Background(), srv.URL, RenderOptions{NoCache: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if result.Page.Title != "Hello" {
		t.Errorf("Title = %q", result.Page.Title)
	}
	if result.DetectedSPA {
		t.Errorf("expected static page, not flagged as SPA")
	}
	if result.Cached {
		t.Errorf("expected uncached result")
	}
	if len(result.Chunks) == 0 {
		t.Errorf("expected generated chunks")
	}
	if result.Summary == "" {
		t.Errorf("expected a rendered summary")
	}
}

func TestRenderForceLiteBypassesCache(t *testing.T) {
	html := `<html><head><title>Forced</title></head><body>
<main><h1>Forced</h1><p>This static page is rendered with force-lite set,
which must skip the cache lookup regardless of any prior cached entry.</p></main>
</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
	}))
	defer srv.Close()

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open: %v", err)
	}
	defer store.Close()

	o := New(store)
	if _, err := o.Render(context.Background(), srv.URL, RenderOptions{}); err != nil {
		t.Fatalf("priming Render: %v", err)
	}
	result, err := o.Render(context.Background(), srv.URL, RenderOptions{ForceLite: true})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if result.Cached {
		t.Errorf("expected a forced render to bypass the cache")
	}
	if result.Page.Title != "Forced" {
		t.Errorf("Title = %q", result.Page.Title)
	}
}
