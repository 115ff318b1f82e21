package spa

import (
	"strings"
	"testing"
)

func TestDetectReactEmptyRoot(t *testing.T) {
	html := `<html><head><script src="/static/js/main.abc123.js"></script></head>
<body><div id="root"></div></body></html>`
	r := Detect(html)
	if !r.IsSPA {
		t.Fatalf("expected SPA, got %#v", r)
	}
	if r.Reasons[0] != "React root div (empty)" {
		t.Errorf("reasons = %#v", r.Reasons)
	}
}

func TestDetectAngular(t *testing.T) {
	html := `<html><body><app-root ng-version="17.0.0"></app-root>
<script src="/runtime.js"></script></body></html>`
	r := Detect(html)
	if !r.IsSPA {
		t.Fatalf("expected SPA, got %#v", r)
	}
	found := false
	for _, reason := range r.Reasons {
		if reason == "Angular app-root" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected angular reason, got %#v", r.Reasons)
	}
}

func TestDetectVueAppDiv(t *testing.T) {
	html := `<html><body><div id="app"></div><script src="/app.js"></script></body></html>`
	r := Detect(html)
	if !r.IsSPA {
		t.Fatalf("expected SPA, got %#v", r)
	}
	found := false
	for _, reason := range r.Reasons {
		if reason == "Vue app div (empty)" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected vue app div reason, got %#v", r.Reasons)
	}
}

func TestDetectNextDivAndDataBlobCombine(t *testing.T) {
	html := `<html><head><div id="__next"></div></head><body>
<script>window.__NEXT_DATA__ = {};</script>
<script src="/chunk.js"></script></body></html>`
	r := Detect(html)
	if !r.IsSPA {
		t.Fatalf("expected SPA, got %#v", r)
	}
	if r.Score < 6 {
		t.Errorf("expected score combining __next div (+3) and NEXT_DATA (+3), got %d", r.Score)
	}
}

func TestDetectLdJSONNegativeSignal(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><head><script type="application/ld+json">{}</script></head><body>`)
	for i := 0; i < 40; i++ {
		b.WriteString("<p>This is an ordinary sentence about our company history and products.</p>")
	}
	b.WriteString(`</body></html>`)
	r := Detect(b.String())
	found := false
	for _, reason := range r.Reasons {
		if strings.Contains(reason, "structured data") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the ld+json negative signal to fire, got %#v", r.Reasons)
	}
}

func TestDetectStaticPageNotSPA(t *testing.T) {
	html := `<html><head><title>About us</title></head><body>
<h1>About our company</h1>
<p>We have been in business since 1990, building widgets for customers
around the world. Our team is proud of the work we do and the
relationships we have built over three decades.</p>
<p>Contact us at info@example.com for more information about our
products and services.</p>
</body></html>`
	r := Detect(html)
	if r.IsSPA {
		t.Fatalf("expected static page, got %#v", r)
	}
	if r.Confidence != Low {
		t.Errorf("confidence = %v", r.Confidence)
	}
}
