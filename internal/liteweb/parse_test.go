package liteweb

import (
	"net/url"
	"testing"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestParseDocumentBasics(t *testing.T) {
	html := `<html><head><title>Example &amp; Co</title>
<meta name="Description" content="a page">
<meta property="og:Title" content="Example OG">
</head><body>
<main>
<h1>Welcome</h1>
<p>Hello <b>world</b>.</p>
<a href="/about">About us</a>
<a href="#">skip</a>
<form action="/submit" method="post">
<input type="text" name="email" placeholder="you@example.com" required>
<input type="hidden" name="token" value="x">
<textarea name="msg"></textarea>
<select name="country"><option>US</option><option>CA</option></select>
</form>
<img src="/logo.png" alt="logo" width="10" height="10">
<table><tr><th>A</th><th>B</th></tr><tr><td>1</td><td>2</td></tr></table>
</main>
</body></html>`

	base := mustURL(t, "https://example.com/page")
	p := parseDocument(html, base)

	if p.Title != "Example & Co" {
		t.Errorf("title = %q", p.Title)
	}
	if p.Meta["description"] != "a page" {
		t.Errorf("meta description = %q", p.Meta["description"])
	}
	if p.Meta["og:Title"] != "Example OG" {
		t.Errorf("meta og:Title = %q, meta=%#v", p.Meta["og:Title"], p.Meta)
	}
	if len(p.Headings) != 1 || p.Headings[0].Text != "Welcome" {
		t.Errorf("headings = %#v", p.Headings)
	}
	if len(p.Links) != 1 || p.Links[0].Href != "https://example.com/about" {
		t.Errorf("links = %#v", p.Links)
	}
	if len(p.Forms) != 1 {
		t.Fatalf("forms = %#v", p.Forms)
	}
	form := p.Forms[0]
	if form.Action != "https://example.com/submit" || form.Method != "POST" {
		t.Errorf("form action/method = %q/%q", form.Action, form.Method)
	}
	if len(form.Fields) != 3 {
		t.Fatalf("expected 3 visible fields (hidden excluded), got %#v", form.Fields)
	}
	if form.Fields[0].Name != "email" || !form.Fields[0].Required {
		t.Errorf("email field = %#v", form.Fields[0])
	}
	if form.Fields[2].Kind != "select" || len(form.Fields[2].Options) != 2 {
		t.Errorf("select field = %#v", form.Fields[2])
	}
	if len(p.Images) != 1 || p.Images[0].Src != "https://example.com/logo.png" {
		t.Errorf("images = %#v", p.Images)
	}
	if len(p.Tables) != 2 || p.Tables[0][0] != "A" || p.Tables[1][0] != "1" {
		t.Errorf("tables = %#v", p.Tables)
	}
	if p.TextContent == "" {
		t.Errorf("expected non-empty text content")
	}
}

func TestParseDocumentSkipsNoise(t *testing.T) {
	html := `<body><header>nav stuff</header><script>var x=1;</script>
<div id="content"><p>Real content here.</p></div>
<footer>bye</footer></body>`
	base := mustURL(t, "https://example.com/")
	p := parseDocument(html, base)
	if p.TextContent != "Real content here." {
		t.Errorf("TextContent = %q", p.TextContent)
	}
}

func TestParseDocumentDedupesLinks(t *testing.T) {
	html := `<a href="/a">A</a><a href="/a">A again</a><a href="javascript:void(0)">js</a>`
	base := mustURL(t, "https://example.com/")
	p := parseDocument(html, base)
	if len(p.Links) != 1 {
		t.Fatalf("expected 1 deduped link, got %#v", p.Links)
	}
}
