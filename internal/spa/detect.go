// Package spa implements the SPA-likelihood heuristic (§4.C): a weighted
// signal table scored against raw HTML, no script execution, used by the
// orchestrator to decide whether to escalate to the browser renderer.
package spa

import (
	"fmt"
	"regexp"

	"github.com/clark235/agentweb/internal/htmlutil"
)

type Confidence string

const (
	High   Confidence = "high"
	Medium Confidence = "medium"
	Low    Confidence = "low"
)

// Report is the outcome of one detection pass, with reasons in the order
// their signals were evaluated.
type Report struct {
	IsSPA      bool       `json:"isSpa"`
	Confidence Confidence `json:"confidence"`
	Score      int        `json:"score"`
	Reasons    []string   `json:"reasons"`
}

var (
	rootDivRE   = regexp.MustCompile(`(?is)<div\b[^>]*\bid\s*=\s*["']root["'][^>]*>\s*</div>`)
	appDivRE    = regexp.MustCompile(`(?is)<div\b[^>]*\bid\s*=\s*["']app["'][^>]*>\s*</div>`)
	nextDivRE   = regexp.MustCompile(`(?is)<div\b[^>]*\bid\s*=\s*["']__next["']`)
	appRootRE   = regexp.MustCompile(`(?is)<app-root\b`)
	reactRootRE = regexp.MustCompile(`(?is)\bdata-reactroot\b`)
	vueAppAttrRE = regexp.MustCompile(`(?is)\bdata-vue-app\b`)
	ngVersionRE = regexp.MustCompile(`(?is)\bng-version\s*=`)
	nuxtRE      = regexp.MustCompile(`__nuxt`)
	nextDataRE  = regexp.MustCompile(`window\.__NEXT_DATA__`)
	initStateRE = regexp.MustCompile(`window\.__INITIAL_STATE__`)
	svelteClassRE = regexp.MustCompile(`(?is)\bclass\s*=\s*["'][^"']*\bsvelte-`)
	emberClassRE  = regexp.MustCompile(`(?is)\bclass\s*=\s*["'][^"']*\bember-application\b`)

	loadingClassRE = regexp.MustCompile(`(?is)\bclass\s*=\s*["'][^"']*\b(loading|skeleton|spinner)\b`)
	loadingAriaRE  = regexp.MustCompile(`(?is)\baria-label\s*=\s*["']loading["']`)

	headingRE       = regexp.MustCompile(`(?is)<h[1-6]\b`)
	substantialPRE  = regexp.MustCompile(`(?is)<p\b[^>]*>(.*?)</p>`)

	metaGeneratorRE = regexp.MustCompile(`(?is)<meta\b[^>]*\bname\s*=\s*["']generator["'][^>]*\bcontent\s*=\s*["']([^"']*)["']`)
	reactOrNextRE   = regexp.MustCompile(`(?i)react|next\.js`)

	ldJSONRE = regexp.MustCompile(`(?i)application/ld\+json`)

	scriptStyleRE   = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</(script|style)>`)
	scriptContentRE = regexp.MustCompile(`(?is)<script\b[^>]*>(.*?)</script>`)
)

const (
	spaThreshold      = 4
	highThreshold     = 8
	lowRatioHTMLBytes = 5 * 1024
	midRatioHTMLBytes = 10 * 1024
	noHeadingHTMLBytes = 20 * 1024
)

// Detect scores rawHTML against the §4.C weighted signal table and returns
// a Report with isSPA/confidence/reasons, in evaluation order.
func Detect(rawHTML string) Report {
	score := 0
	var reasons []string
	add := func(weight int, reason string) {
		score += weight
		reasons = append(reasons, reason)
	}

	if rootDivRE.MatchString(rawHTML) {
		add(4, "React root div (empty)")
	}
	if appDivRE.MatchString(rawHTML) {
		add(4, "Vue app div (empty)")
	}
	if nextDivRE.MatchString(rawHTML) {
		add(3, "Next.js div (__next)")
	}
	if appRootRE.MatchString(rawHTML) {
		add(4, "Angular app-root")
	}
	if reactRootRE.MatchString(rawHTML) {
		add(3, "React data-reactroot attribute")
	}
	if vueAppAttrRE.MatchString(rawHTML) {
		add(4, "Vue data-vue-app attribute")
	}
	if ngVersionRE.MatchString(rawHTML) {
		add(3, "Angular ng-version attribute")
	}
	if nuxtRE.MatchString(rawHTML) {
		add(2, "Nuxt token")
	}
	if nextDataRE.MatchString(rawHTML) {
		add(3, "Next.js data blob")
	}
	if initStateRE.MatchString(rawHTML) {
		add(2, "Redux/Vuex initial state blob")
	}
	if svelteClassRE.MatchString(rawHTML) {
		add(2, "Svelte class prefix")
	}
	if emberClassRE.MatchString(rawHTML) {
		add(3, "Ember application class")
	}

	htmlBytes := len(rawHTML)
	ratio := textToHTMLRatio(rawHTML)
	switch {
	case ratio < 0.05 && htmlBytes > lowRatioHTMLBytes:
		add(4, fmt.Sprintf("very low text/html ratio (%.2f)", ratio))
	case ratio < 0.10 && htmlBytes > midRatioHTMLBytes:
		add(2, fmt.Sprintf("low text/html ratio (%.2f)", ratio))
	}

	if scriptByteRatio(rawHTML) > 0.50 {
		add(2, "high script-byte ratio")
	}

	if loadingMarkerCount(rawHTML) >= 2 {
		add(2, "loading/skeleton markers")
	}

	if !headingRE.MatchString(rawHTML) && substantialParagraphCount(rawHTML) < 3 && htmlBytes > noHeadingHTMLBytes {
		add(3, "no headings and few substantial paragraphs")
	}

	if m := metaGeneratorRE.FindStringSubmatch(rawHTML); m != nil && reactOrNextRE.MatchString(m[1]) {
		add(2, "meta generator mentions React/Next.js")
	}

	if ldJSONRE.MatchString(rawHTML) && ratio > 0.15 {
		score -= 2
		reasons = append(reasons, "structured data present alongside substantial text")
	}

	r := Report{Score: score, Reasons: reasons}
	switch {
	case score >= highThreshold:
		r.IsSPA = true
		r.Confidence = High
	case score >= spaThreshold:
		r.IsSPA = true
		r.Confidence = Medium
	default:
		r.IsSPA = false
		r.Confidence = Low
	}
	return r
}

func loadingMarkerCount(rawHTML string) int {
	return len(loadingClassRE.FindAllString(rawHTML, -1)) + len(loadingAriaRE.FindAllString(rawHTML, -1))
}

func substantialParagraphCount(rawHTML string) int {
	n := 0
	for _, m := range substantialPRE.FindAllStringSubmatch(rawHTML, -1) {
		if len(htmlutil.StripTags(m[1])) >= 20 {
			n++
		}
	}
	return n
}

func scriptByteRatio(rawHTML string) float64 {
	if len(rawHTML) == 0 {
		return 0
	}
	scriptBytes := 0
	for _, m := range scriptContentRE.FindAllStringSubmatch(rawHTML, -1) {
		scriptBytes += len(m[1])
	}
	return float64(scriptBytes) / float64(len(rawHTML))
}

func textToHTMLRatio(rawHTML string) float64 {
	if len(rawHTML) == 0 {
		return 1
	}
	stripped := scriptStyleRE.ReplaceAllString(rawHTML, " ")
	text := htmlutil.StripTags(stripped)
	return float64(len(text)) / float64(len(rawHTML))
}
