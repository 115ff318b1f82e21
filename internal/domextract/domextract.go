// Package domextract holds the regex-based structural extraction shared by
// the lite and browser renderers (§4.B, §4.D): both backends start from a
// complete HTML string (a raw fetch body for lite, a serialized rendered
// DOM for browser) and produce the same PageRecord shape, differing only in
// the knobs in Options.
package domextract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/clark235/agentweb/internal/htmlutil"
	"github.com/clark235/agentweb/internal/pagerecord"
)

// Options tunes the extraction for a particular backend.
type Options struct {
	MaxLinks           int
	DedupeLinks        bool
	MaxImages          int
	MaxTables          int
	MaxRowsPerTable    int
	MaxOptionsPerSelect int
	HeadingTextCap     int
	LinkTextCap        int
	TextContentCap     int
	// LowercaseNameMeta controls whether a <meta name="..."> key is
	// lowercased. property= keys are always preserved as-is.
	LowercaseNameMeta bool
}

var (
	titleRE   = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaRE    = regexp.MustCompile(`(?is)<meta\b([^>]*)>`)
	bodyRE    = regexp.MustCompile(`(?is)<body\b([^>]*)>(.*)</body>`)
	mainRE    = regexp.MustCompile(`(?is)<main\b[^>]*>(.*?)</main>`)
	articleRE = regexp.MustCompile(`(?is)<article\b[^>]*>(.*?)</article>`)
	headingRE = regexp.MustCompile(`(?is)<h([1-6])\b[^>]*>(.*?)</h[1-6]>`)
	linkRE    = regexp.MustCompile(`(?is)<a\b([^>]*)>(.*?)</a>`)
	formRE    = regexp.MustCompile(`(?is)<form\b([^>]*)>(.*?)</form>`)
	imgRE     = regexp.MustCompile(`(?is)<img\b([^>]*?)/?>`)
	tableRE   = regexp.MustCompile(`(?is)<table\b[^>]*>(.*?)</table>`)
	rowRE     = regexp.MustCompile(`(?is)<tr\b[^>]*>(.*?)</tr>`)
	cellRE    = regexp.MustCompile(`(?is)<t[dh]\b[^>]*>(.*?)</t[dh]>`)
	optionRE  = regexp.MustCompile(`(?is)<option\b[^>]*>(.*?)</option>`)

	scriptStyleRE  = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</(script|style)>`)
	navFooterHdrRE = regexp.MustCompile(`(?is)<(nav|footer|header)\b[^>]*>.*?</(nav|footer|header)>`)

	divOpenRE  = regexp.MustCompile(`(?is)<div\b([^>]*)>`)
	divCloseRE = regexp.MustCompile(`(?is)</div\s*>`)

	fieldRE = regexp.MustCompile(`(?is)(<input\b([^>]*?)/?>)|(<textarea\b([^>]*)>(.*?)</textarea>)|(<select\b([^>]*)>(.*?)</select>)`)

	requiredRE = regexp.MustCompile(`(?i)(^|\s)required(\s|=|/|>|$)`)
)

// Extract parses raw HTML into a PageRecord, absolutizing link/image/form
// targets against base.
func Extract(raw string, base *url.URL, opts Options) *pagerecord.PageRecord {
	p := &pagerecord.PageRecord{
		URL:  base.String(),
		Meta: map[string]string{},
	}

	p.Title = extractTitle(raw)
	extractMeta(raw, p.Meta, opts)
	p.Headings = extractHeadings(raw, opts)
	p.Links = extractLinks(raw, base, opts)
	p.Forms = extractForms(raw, base)
	p.Images = extractImages(raw, base, opts)
	p.Tables = extractTables(raw, opts)
	p.TextContent = extractTextContent(raw, opts)

	return p
}

func extractTitle(raw string) string {
	m := titleRE.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return htmlutil.DecodeEntities(htmlutil.StripTags(m[1]))
}

func extractMeta(raw string, out map[string]string, opts Options) {
	for _, m := range metaRE.FindAllStringSubmatch(raw, -1) {
		attrs := htmlutil.ParseAttrs(m[1])
		content, ok := attrs["content"]
		if !ok {
			continue
		}
		if name, ok := attrs["name"]; ok && name != "" {
			key := name
			if opts.LowercaseNameMeta {
				key = strings.ToLower(name)
			}
			out[key] = content
		}
		if prop, ok := attrs["property"]; ok && prop != "" {
			out[prop] = content
		}
	}
}

func extractHeadings(raw string, opts Options) []pagerecord.Heading {
	var out []pagerecord.Heading
	for _, m := range headingRE.FindAllStringSubmatch(raw, -1) {
		text := htmlutil.DecodeEntities(htmlutil.StripTags(m[2]))
		if text == "" {
			continue
		}
		level := int(m[1][0] - '0')
		out = append(out, pagerecord.Heading{
			Level: level,
			Text:  pagerecord.Truncate(text, opts.HeadingTextCap),
		})
	}
	return out
}

func extractLinks(raw string, base *url.URL, opts Options) []pagerecord.Link {
	var out []pagerecord.Link
	var seen map[string]bool
	if opts.DedupeLinks {
		seen = map[string]bool{}
	}
	for _, m := range linkRE.FindAllStringSubmatch(raw, -1) {
		if len(out) >= opts.MaxLinks {
			break
		}
		attrs := htmlutil.ParseAttrs(m[1])
		href := attrs["href"]
		if pagerecord.ExcludedLink(href) {
			continue
		}
		abs, ok := pagerecord.Absolutize(base, href)
		if !ok {
			continue
		}
		if seen != nil {
			if seen[abs] {
				continue
			}
			seen[abs] = true
		}
		text := htmlutil.DecodeEntities(htmlutil.StripTags(m[2]))
		if text == "" {
			continue
		}
		out = append(out, pagerecord.Link{
			Text: pagerecord.Truncate(text, opts.LinkTextCap),
			Href: abs,
		})
	}
	return out
}

func hasRequired(attrText string) bool {
	return requiredRE.MatchString(attrText)
}

func extractForms(raw string, base *url.URL) []pagerecord.Form {
	var out []pagerecord.Form
	for _, m := range formRE.FindAllStringSubmatch(raw, -1) {
		attrs := htmlutil.ParseAttrs(m[1])
		action := attrs["action"]
		absAction := action
		if abs, ok := pagerecord.Absolutize(base, action); ok {
			absAction = abs
		}
		form := pagerecord.Form{
			Action: absAction,
			Method: pagerecord.NormalizeMethod(attrs["method"]),
		}
		form.Fields = extractFields(m[2])
		out = append(out, form)
	}
	return out
}

func extractFields(formInner string) []pagerecord.FormField {
	var out []pagerecord.FormField
	for _, m := range fieldRE.FindAllStringSubmatch(formInner, -1) {
		switch {
		case m[1] != "":
			attrs := htmlutil.ParseAttrs(m[2])
			typ := attrs["type"]
			if strings.EqualFold(typ, "hidden") {
				continue
			}
			if typ == "" {
				typ = "text"
			}
			out = append(out, pagerecord.FormField{
				Kind:        pagerecord.FieldInput,
				Name:        attrs["name"],
				Type:        typ,
				Placeholder: attrs["placeholder"],
				Required:    hasRequired(m[2]),
			})
		case m[3] != "":
			attrs := htmlutil.ParseAttrs(m[4])
			out = append(out, pagerecord.FormField{
				Kind:        pagerecord.FieldTextarea,
				Name:        attrs["name"],
				Placeholder: attrs["placeholder"],
				Required:    hasRequired(m[4]),
			})
		case m[6] != "":
			attrs := htmlutil.ParseAttrs(m[7])
			out = append(out, pagerecord.FormField{
				Kind:    pagerecord.FieldSelect,
				Name:    attrs["name"],
				Options: extractOptions(m[8]),
			})
		}
	}
	return out
}

func extractOptions(selectInner string) []string {
	var out []string
	for _, m := range optionRE.FindAllStringSubmatch(selectInner, -1) {
		if len(out) >= 20 {
			break
		}
		text := htmlutil.DecodeEntities(htmlutil.StripTags(m[1]))
		if text == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}

func extractImages(raw string, base *url.URL, opts Options) []pagerecord.Image {
	var out []pagerecord.Image
	for _, m := range imgRE.FindAllStringSubmatch(raw, -1) {
		if len(out) >= opts.MaxImages {
			break
		}
		attrs := htmlutil.ParseAttrs(m[1])
		src := attrs["src"]
		if src == "" {
			continue
		}
		abs, ok := pagerecord.Absolutize(base, src)
		if !ok {
			continue
		}
		out = append(out, pagerecord.Image{
			Src:    abs,
			Alt:    attrs["alt"],
			Width:  attrs["width"],
			Height: attrs["height"],
		})
	}
	return out
}

func extractTables(raw string, opts Options) []pagerecord.TableRow {
	var out []pagerecord.TableRow
	for _, t := range tableRE.FindAllStringSubmatch(raw, -1) {
		if len(out) >= opts.MaxTables*opts.MaxRowsPerTable {
			break
		}
		rows := rowRE.FindAllStringSubmatch(t[1], -1)
		for i, r := range rows {
			if i >= opts.MaxRowsPerTable {
				break
			}
			cells := cellRE.FindAllStringSubmatch(r[1], -1)
			row := make(pagerecord.TableRow, 0, len(cells))
			for _, c := range cells {
				row = append(row, htmlutil.DecodeEntities(htmlutil.StripTags(c[1])))
			}
			out = append(out, row)
		}
	}
	return out
}

func extractTextContent(raw string, opts Options) string {
	body := raw
	if m := bodyRE.FindStringSubmatch(raw); m != nil {
		body = m[2]
	}

	content := mainContentHTML(body)
	content = scriptStyleRE.ReplaceAllString(content, " ")
	content = navFooterHdrRE.ReplaceAllString(content, " ")
	text := htmlutil.DecodeEntities(htmlutil.StripTags(content))
	return pagerecord.Truncate(text, opts.TextContentCap)
}

func mainContentHTML(body string) string {
	if m := mainRE.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	if m := articleRE.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	if div := findContentDiv(body); div != "" {
		return div
	}
	return body
}

func findContentDiv(html string) string {
	idx := 0
	for {
		loc := divOpenRE.FindStringSubmatchIndex(html[idx:])
		if loc == nil {
			return ""
		}
		attrsStart := idx + loc[2]
		attrsEnd := idx + loc[3]
		tagEnd := idx + loc[1]
		attrs := htmlutil.ParseAttrs(html[attrsStart:attrsEnd])
		if pagerecord.LooksLikeContentContainer(attrs["id"]) || pagerecord.LooksLikeContentContainer(attrs["class"]) {
			if inner, ok := extractBalancedDiv(html, tagEnd); ok {
				return inner
			}
		}
		idx = tagEnd
	}
}

// extractBalancedDiv walks forward from just after an opening <div ...>,
// tracking nested div depth via a counter (not a DOM), to find the matching
// closing tag.
func extractBalancedDiv(html string, from int) (string, bool) {
	depth := 1
	pos := from
	for pos < len(html) {
		openLoc := divOpenRE.FindStringIndex(html[pos:])
		closeLoc := divCloseRE.FindStringIndex(html[pos:])
		if closeLoc == nil {
			return "", false
		}
		if openLoc != nil && openLoc[0] < closeLoc[0] {
			depth++
			pos += openLoc[1]
			continue
		}
		depth--
		if depth == 0 {
			return html[from : pos+closeLoc[0]], true
		}
		pos += closeLoc[1]
	}
	return "", false
}
