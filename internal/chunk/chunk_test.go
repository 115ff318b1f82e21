package chunk

import (
	"strings"
	"testing"

	"github.com/clark235/agentweb/internal/pagerecord"
)

func samplePage() *pagerecord.PageRecord {
	return &pagerecord.PageRecord{
		URL:   "https://example.com/",
		Title: "Widgets Inc",
		Meta:  map[string]string{"description": "We build widgets."},
		Headings: []pagerecord.Heading{
			{Level: 1, Text: "Welcome"},
			{Level: 2, Text: "Our products"},
		},
		Links: []pagerecord.Link{
			{Text: "Pricing", Href: "https://example.com/pricing"},
			{Text: "Contact", Href: "https://example.com/contact"},
		},
		Forms: []pagerecord.Form{
			{
				Action: "https://example.com/signup",
				Method: "POST",
				Fields: []pagerecord.FormField{
					{Kind: pagerecord.FieldInput, Name: "email", Type: "email", Required: true},
				},
			},
		},
		TextContent: "Welcome\n\nWidgets Inc has been building widgets since 1990.\n\n" +
			"Our flagship product is the super widget, trusted by thousands of customers " +
			"across the globe for its reliability and ease of use in industrial settings.",
	}
}

func TestGenerateOrderAndTypes(t *testing.T) {
	page := samplePage()
	chunks := Generate(page)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	if chunks[0].Type != TypeSummary {
		t.Errorf("expected highest-scored chunk to be summary, got %v", chunks[0].Type)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i-1].Score < chunks[i].Score {
			t.Fatalf("chunks not sorted by score descending at index %d: %#v", i, chunks)
		}
	}

	var sawForm, sawLinks, sawParagraph, sawTOC bool
	for _, c := range chunks {
		switch c.Type {
		case TypeForm:
			sawForm = true
		case TypeLinks:
			sawLinks = true
		case TypeParagraph, TypeLabel:
			sawParagraph = true
		case TypeTOC:
			sawTOC = true
		}
	}
	if !sawForm || !sawLinks || !sawParagraph || !sawTOC {
		t.Errorf("missing chunk types: form=%v links=%v paragraph=%v toc=%v", sawForm, sawLinks, sawParagraph, sawTOC)
	}
}

func TestParagraphSkipsHeadingDuplicate(t *testing.T) {
	page := samplePage()
	chunks := Generate(page)
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "Welcome" {
			t.Errorf("expected the heading-duplicate paragraph to be skipped, got chunk %#v", c)
		}
	}
}

func TestSplitOversizedKeepsSentences(t *testing.T) {
	text := strings.Repeat("This is a sentence about widgets. ", 40)
	pieces := splitOversized(text, 600)
	if len(pieces) < 2 {
		t.Fatalf("expected multiple pieces, got %d", len(pieces))
	}
	for _, p := range pieces {
		trimmed := strings.TrimRight(p, " ")
		if trimmed == "" {
			continue
		}
		last := trimmed[len(trimmed)-1]
		if last != '.' && last != '!' && last != '?' {
			t.Errorf("piece does not end on sentence boundary: %q", p)
		}
	}
}

func TestScoreParagraphNavAndBoilerplate(t *testing.T) {
	nav := scoreParagraph("Sign in to your account to continue.", 0, false)
	ordinary := scoreParagraph("Widgets Inc has been building reliable widgets for industrial customers since 1990.", 0, false)
	if nav >= ordinary {
		t.Errorf("expected nav-prefixed paragraph to score lower than ordinary prose: nav=%d ordinary=%d", nav, ordinary)
	}

	boilerplate := scoreParagraph("Copyright 2026 Widgets Inc. All rights reserved.", 0, false)
	if boilerplate >= ordinary {
		t.Errorf("expected boilerplate paragraph to score lower than ordinary prose: boilerplate=%d ordinary=%d", boilerplate, ordinary)
	}
}

func TestDetectTypeVariants(t *testing.T) {
	cases := []struct {
		text string
		want Type
	}{
		{"- first item in a list", TypeListItem},
		{"note: remember to check the cache first", TypeCallout},
		{"https://example.com/docs", TypeLink},
		{"Pricing", TypeLabel},
		{"$ go test ./...", TypeCode},
	}
	for _, c := range cases {
		if got := detectType(c.text, ""); got != c.want {
			t.Errorf("detectType(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestFindRelevantRanksByOverlap(t *testing.T) {
	page := samplePage()
	chunks := Generate(page)
	top := FindRelevant(chunks, "widget reliability", 3)
	if len(top) == 0 {
		t.Fatal("expected relevant chunks")
	}
	found := false
	for _, c := range top {
		if strings.Contains(strings.ToLower(c.Text), "reliability") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a chunk mentioning reliability near the top, got %#v", top)
	}
	for _, c := range top {
		if c.Relevance == nil {
			t.Errorf("expected Relevance to be set on ranked chunk %#v", c)
		}
	}
}

func TestFindRelevantTieBreaksOnOccurrenceCount(t *testing.T) {
	chunks := []Chunk{
		{ID: 0, Type: TypeParagraph, Text: "widgets widgets widgets are great", Score: 0},
		{ID: 1, Type: TypeParagraph, Text: "widgets are fine", Score: 0},
	}
	ranked := FindRelevant(chunks, "widgets", 2)
	if ranked[0].ID != 0 {
		t.Errorf("expected the chunk with more token occurrences to rank first, got %#v", ranked)
	}
}

func TestFindRelevantNoTokenMatchStillRanksByScore(t *testing.T) {
	chunks := []Chunk{
		{ID: 0, Type: TypeParagraph, Text: "irrelevant text", Score: 1},
		{ID: 1, Type: TypeParagraph, Text: "more irrelevant text", Score: 5},
	}
	ranked := FindRelevant(chunks, "zzz_no_such_token", 2)
	if len(ranked) != 2 {
		t.Fatalf("expected both chunks returned even with no token overlap, got %#v", ranked)
	}
	if ranked[0].ID != 1 {
		t.Errorf("expected the higher base-score chunk first when no tokens match, got %#v", ranked)
	}
}
