// Package chunk turns a PageRecord into a set of typed, scored Chunks
// (§4.E) an agent can retrieve against a query, grounded on mizu's
// chunker.go for the overall shape (Document -> sentence-aware chunks)
// but generalized from free text to agentweb's structured PageRecord.
package chunk

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/clark235/agentweb/internal/pagerecord"
)

type Type string

const (
	TypeSummary   Type = "summary"
	TypeTOC       Type = "toc"
	TypeParagraph Type = "paragraph"
	TypeHeading   Type = "heading"
	TypeListItem  Type = "list-item"
	TypeCallout   Type = "callout"
	TypeTableCell Type = "table-cell"
	TypeLabel     Type = "label"
	TypeLink      Type = "link"
	TypeCode      Type = "code"
	TypeForm      Type = "form"
	TypeLinks     Type = "links"
)

// Chunk is one retrievable unit of a rendered page (§3). Section is nil
// when the chunk isn't attributed to a heading. Relevance is set only by
// FindRelevant.
type Chunk struct {
	ID        int                    `json:"id"`
	Type      Type                   `json:"type"`
	Section   *string                `json:"section"`
	Text      string                 `json:"text"`
	Score     int                    `json:"score"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
	Relevance *int                   `json:"relevance,omitempty"`
}

// Options configures one Generate call (§4.E contract defaults).
type Options struct {
	MaxChunkSize int
	MinScore     int
	IncludeNav   bool
}

// DefaultOptions returns the spec's {maxChunkSize: 800, minScore: -1,
// includeNav: false}.
func DefaultOptions() Options {
	return Options{MaxChunkSize: 800, MinScore: -1, IncludeNav: false}
}

const (
	linksPerChunk     = 20
	summaryTextSample = 400
	minSentenceChars  = 10
)

var notableLinkExcludeRE = regexp.MustCompile(`(?i)^(home|menu|back|next|prev|more|see all)\b`)

// Generate produces page's chunk set with default options.
func Generate(page *pagerecord.PageRecord) []Chunk {
	return GenerateWithOptions(page, DefaultOptions())
}

// GenerateWithOptions runs the §4.E generation algorithm: summary, toc,
// paragraphs, one chunk per form, then a single notable-links chunk, each
// id incrementing in emission order. The result is filtered by minScore
// and sorted by score descending.
func GenerateWithOptions(page *pagerecord.PageRecord, opts Options) []Chunk {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = 800
	}

	id := 0
	var chunks []Chunk

	if c, ok := summaryChunk(page, &id); ok {
		chunks = append(chunks, c)
	}
	if c, ok := tocChunk(page, &id); ok {
		chunks = append(chunks, c)
	}
	chunks = append(chunks, paragraphChunks(page, opts, &id)...)
	chunks = append(chunks, formChunks(page, &id)...)
	if c, ok := linksChunk(page, &id); ok {
		chunks = append(chunks, c)
	}

	filtered := chunks[:0]
	for _, c := range chunks {
		if c.Score >= opts.MinScore {
			filtered = append(filtered, c)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })
	return filtered
}

func nextID(id *int) int {
	v := *id
	*id++
	return v
}

func summaryChunk(page *pagerecord.PageRecord, id *int) (Chunk, bool) {
	var b strings.Builder
	if page.Title != "" {
		fmt.Fprintf(&b, "%s\n", page.Title)
	}
	if desc, ok := page.Meta["description"]; ok && desc != "" {
		fmt.Fprintf(&b, "%s\n", desc)
	} else if desc, ok := page.Meta["Description"]; ok && desc != "" {
		fmt.Fprintf(&b, "%s\n", desc)
	}
	fmt.Fprintf(&b, "%s\n", page.URL)
	fmt.Fprintf(&b, "headings=%d links=%d forms=%d images=%d tables=%d textLength=%d\n",
		page.Stats.HeadingCount, page.Stats.LinkCount, page.Stats.FormCount,
		page.Stats.ImageCount, page.Stats.TableCount, page.Stats.TextLength)
	b.WriteString(pagerecord.Truncate(page.TextContent, summaryTextSample))

	content := strings.TrimSpace(b.String())
	if content == "" {
		return Chunk{}, false
	}
	return Chunk{
		ID:    nextID(id),
		Type:  TypeSummary,
		Text:  content,
		Score: 10,
	}, true
}

func tocChunk(page *pagerecord.PageRecord, id *int) (Chunk, bool) {
	if len(page.Headings) == 0 {
		return Chunk{}, false
	}
	var lines []string
	for _, h := range page.Headings {
		lines = append(lines, fmt.Sprintf("%s%s", strings.Repeat("  ", h.Level-1), h.Text))
	}
	return Chunk{
		ID:    nextID(id),
		Type:  TypeTOC,
		Text:  strings.Join(lines, "\n"),
		Score: 5,
	}, true
}

func formChunks(page *pagerecord.PageRecord, id *int) []Chunk {
	var out []Chunk
	for _, f := range page.Forms {
		var b strings.Builder
		fmt.Fprintf(&b, "Form (%s %s)\n", f.Method, f.Action)
		for _, fld := range f.Fields {
			switch fld.Kind {
			case pagerecord.FieldSelect:
				fmt.Fprintf(&b, "- %s: select [%s]\n", fld.Name, strings.Join(fld.Options, ", "))
			default:
				req := ""
				if fld.Required {
					req = " (required)"
				}
				fmt.Fprintf(&b, "- %s: %s%s\n", fld.Name, fld.Type, req)
			}
		}
		out = append(out, Chunk{
			ID:    nextID(id),
			Type:  TypeForm,
			Text:  strings.TrimSpace(b.String()),
			Score: 7,
		})
	}
	return out
}

// linksChunk emits the single "notable links" chunk the spec's step 5
// describes: text length 4-79, not starting with a navigational word,
// capped at 20 entries.
func linksChunk(page *pagerecord.PageRecord, id *int) (Chunk, bool) {
	var notable []pagerecord.Link
	for _, l := range page.Links {
		text := strings.TrimSpace(l.Text)
		if len(text) < 4 || len(text) > 79 {
			continue
		}
		if notableLinkExcludeRE.MatchString(text) {
			continue
		}
		notable = append(notable, l)
		if len(notable) >= linksPerChunk {
			break
		}
	}
	if len(notable) == 0 {
		return Chunk{}, false
	}

	var lines []string
	for _, l := range notable {
		lines = append(lines, fmt.Sprintf("%s (%s)", l.Text, l.Href))
	}
	return Chunk{
		ID:    nextID(id),
		Type:  TypeLinks,
		Text:  strings.Join(lines, "\n"),
		Score: 3,
	}, true
}

var paragraphSplitRE = regexp.MustCompile(`\n\s*\n`)

// paragraphChunks splits textContent on blank-line runs, skips paragraphs
// that duplicate a heading (tracking currentSection instead), drops
// nav-like paragraphs unless includeNav is set, and scores/types/splits
// the rest per §4.E.
func paragraphChunks(page *pagerecord.PageRecord, opts Options, id *int) []Chunk {
	raw := strings.TrimSpace(page.TextContent)
	if raw == "" {
		return nil
	}

	var paras []string
	for _, p := range paragraphSplitRE.Split(raw, -1) {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	if len(paras) == 0 {
		paras = []string{raw}
	}

	var out []Chunk
	var currentSection string
	for _, p := range paras {
		if headingText, ok := matchesHeading(p, page.Headings); ok {
			currentSection = headingText
			continue
		}

		density := linkDensity(p)
		if !opts.IncludeNav && density > 0.5 {
			continue
		}

		var section *string
		if currentSection != "" {
			s := currentSection
			section = &s
		}

		pieces := splitOversized(p, opts.MaxChunkSize)
		for i, piece := range pieces {
			score := scoreParagraph(piece, linkDensity(piece), currentSection != "")
			c := Chunk{
				ID:      nextID(id),
				Type:    detectType(piece, ""),
				Section: section,
				Text:    piece,
				Score:   score,
			}
			if len(pieces) > 1 {
				c.Meta = map[string]interface{}{"partial": true, "part": i}
			}
			out = append(out, c)
		}
	}
	return out
}

// matchesHeading reports whether paragraph is exactly a known heading's
// text, or a prefix of one (textContent flattens headings inline, so the
// TOC step already carries them and paragraph chunking must not repeat
// them).
func matchesHeading(paragraph string, headings []pagerecord.Heading) (string, bool) {
	for _, h := range headings {
		if paragraph == h.Text || strings.HasPrefix(h.Text, paragraph) {
			return h.Text, true
		}
	}
	return "", false
}

var urlOccurrenceRE = regexp.MustCompile(`https?://`)

func linkDensity(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	n := len(urlOccurrenceRE.FindAllString(text, -1))
	return float64(n) / float64(len(words))
}

var sentenceBoundaryRE = regexp.MustCompile(`[.!?]\s+([A-Z])`)

// splitOversized breaks text longer than maxSize into consecutive
// sentence groups that stay under maxSize, cutting only at sentence
// boundaries (RE2 has no lookbehind, so the boundary match captures the
// next sentence's leading capital and the cut falls just before it,
// matching the lookbehind-style split the spec describes).
func splitOversized(text string, maxSize int) []string {
	if len(text) <= maxSize {
		return []string{text}
	}

	sentences := splitSentences(text)
	var pieces []string
	var cur strings.Builder
	for _, s := range sentences {
		if cur.Len() > 0 && cur.Len()+1+len(s) > maxSize {
			pieces = append(pieces, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteString(" ")
		}
		cur.WriteString(s)
	}
	if cur.Len() > 0 {
		pieces = append(pieces, strings.TrimSpace(cur.String()))
	}
	if len(pieces) == 0 {
		return []string{text}
	}
	return pieces
}

// splitSentences cuts text at [.!?]-followed-by-whitespace-and-uppercase
// boundaries, merging any candidate sentence shorter than 10 chars into
// the next one instead of emitting it standalone.
func splitSentences(text string) []string {
	matches := sentenceBoundaryRE.FindAllStringSubmatchIndex(text, -1)
	var sentences []string
	start := 0
	for _, m := range matches {
		cut := m[2] // start of the captured uppercase letter
		piece := text[start:cut]
		if len(strings.TrimSpace(piece)) < minSentenceChars {
			continue
		}
		sentences = append(sentences, strings.TrimSpace(piece))
		start = cut
	}
	if start < len(text) {
		sentences = append(sentences, strings.TrimSpace(text[start:]))
	}
	if len(sentences) == 0 {
		sentences = []string{text}
	}
	return sentences
}

var (
	digitRE      = regexp.MustCompile(`[0-9]`)
	codeMarkerRE = regexp.MustCompile("`|\\b(const|function|import)\\b")
	navWordRE    = regexp.MustCompile(`(?i)^(home|menu|search|login|sign in|sign up|subscribe|newsletter|cookie|privacy|terms)\b`)
	boilerplateRE = regexp.MustCompile(`(?i)copyright|all rights reserved|powered by`)
	howToRE      = regexp.MustCompile(`(?i)how to|step|guide|tutorial|example|note:|warning:|important:`)
)

// scoreParagraph implements §4.E's integer scoring rubric exactly.
func scoreParagraph(text string, density float64, underHeading bool) int {
	n := len(text)
	score := 0

	switch {
	case n >= 50 && n <= 500:
		score += 2
	case n > 500 && n <= 2000:
		score += 1
	}
	if n < 20 {
		score -= 2
	}
	if digitRE.MatchString(text) {
		score++
	}
	if codeMarkerRE.MatchString(text) {
		score += 2
	}
	if navWordRE.MatchString(strings.TrimSpace(text)) {
		score -= 3
	}
	if boilerplateRE.MatchString(text) {
		score -= 2
	}
	if density > 0.7 {
		score -= 2
	}
	if underHeading {
		score++
	}
	if howToRE.MatchString(text) {
		score += 2
	}
	return score
}

var (
	codeFenceRE = regexp.MustCompile("^(```|~~~|\\$ |> )")
	bulletRE    = regexp.MustCompile(`^[•\-*]\s`)
	calloutRE   = regexp.MustCompile(`(?i)^(note|warning|tip|important|caution|info):`)
	linkTextURLRE = regexp.MustCompile(`https?://\S+`)
)

// detectType implements §4.E's type detector. sourceTag carries the
// originating HTML tag when known (h1..h6, li, td/th); the lite/browser
// extraction flattens textContent to plain text with no tag provenance,
// so paragraph chunks always call this with an empty sourceTag and only
// the text-pattern branches (code/list-item/callout/link/label) apply.
func detectType(text, sourceTag string) Type {
	trimmed := strings.TrimSpace(text)
	tag := strings.ToLower(sourceTag)

	switch {
	case codeFenceRE.MatchString(trimmed):
		return TypeCode
	case tag == "h1" || tag == "h2" || tag == "h3" || tag == "h4" || tag == "h5" || tag == "h6":
		return TypeHeading
	case tag == "li" || bulletRE.MatchString(trimmed):
		return TypeListItem
	case calloutRE.MatchString(trimmed):
		return TypeCallout
	case tag == "td" || tag == "th":
		return TypeTableCell
	case linkTextURLRE.MatchString(trimmed) && len(strings.Fields(trimmed)) < 5:
		return TypeLink
	case trimmed != "" && len(trimmed) < 50:
		return TypeLabel
	default:
		return TypeParagraph
	}
}
