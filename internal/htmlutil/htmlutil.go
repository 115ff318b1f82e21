// Package htmlutil holds the three pure, regex-based HTML primitives the
// lite rendering path is built on (§4.A): entity decoding, tag stripping,
// and quoted-attribute parsing. No DOM is ever built here — malformed
// nesting is accepted as a tradeoff, recoverable by falling back to the
// browser path.
package htmlutil

import (
	"regexp"
	"strings"
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&nbsp;", " ",
)

// DecodeEntities replaces the small set of entities the spec names, in one
// pass. It is deliberately not a general HTML-entity decoder, and it never
// re-scans its own output for further entities: "&amp;amp;" decodes to
// "&amp;", not "&".
func DecodeEntities(s string) string {
	return entityReplacer.Replace(s)
}

var tagRE = regexp.MustCompile(`<[^>]*>`)
var wsRE = regexp.MustCompile(`\s+`)

// StripTags replaces every "<...>" run with a single space, collapses
// whitespace runs, and trims the result.
func StripTags(s string) string {
	s = tagRE.ReplaceAllString(s, " ")
	s = wsRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// attrRE matches name="value" or name='value' pairs; unquoted attribute
// values are intentionally not recognized (the spec scopes this to
// quoted-only parsing).
var attrRE = regexp.MustCompile(`([a-zA-Z_:][-a-zA-Z0-9_:.]*)\s*=\s*("([^"]*)"|'([^']*)')`)

// ParseAttrs scans an attribute-list string (the text between a tag name
// and its closing '>') and returns a mapping from lowercased attribute
// name to decoded value.
func ParseAttrs(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range attrRE.FindAllStringSubmatch(s, -1) {
		name := strings.ToLower(m[1])
		var val string
		if strings.HasPrefix(m[2], `"`) {
			val = m[3]
		} else {
			val = m[4]
		}
		out[name] = DecodeEntities(val)
	}
	return out
}
