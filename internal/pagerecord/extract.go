package pagerecord

import (
	"net/url"
	"strings"
)

// Truncate cuts s to at most n runes, safely on a rune boundary.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Absolutize resolves href against base (the page's final URL) exactly the
// way net/url.ResolveReference does — the same mechanism the teacher's
// FixUrl helper used for link rewriting.
func Absolutize(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// ExcludedLink reports whether href should be dropped from the links list:
// javascript: targets and pure same-page fragments.
func ExcludedLink(href string) bool {
	h := strings.TrimSpace(href)
	if h == "" {
		return true
	}
	if strings.HasPrefix(strings.ToLower(h), "javascript:") {
		return true
	}
	if strings.HasPrefix(h, "#") {
		return true
	}
	return false
}

// NormalizeMethod uppercases method, defaulting to GET when blank.
func NormalizeMethod(method string) string {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return "GET"
	}
	return method
}

// contentSelectorTokens are the substrings LooksLikeContentContainer checks
// for (no regex) to find a <div> that plausibly holds main content, per §3's
// fallback chain.
var contentSelectorTokens = []string{"content", "main", "article"}

// LooksLikeContentContainer reports whether a div's id/class attribute
// value matches the content|main|article heuristic.
func LooksLikeContentContainer(idOrClass string) bool {
	v := strings.ToLower(idOrClass)
	for _, tok := range contentSelectorTokens {
		if strings.Contains(v, tok) {
			return true
		}
	}
	return false
}
