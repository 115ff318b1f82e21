// Package browser implements the headless-Chrome renderer (§4.D), used
// when the SPA detector flags a page as script-rendered. It is grounded on
// the teacher's render_headless.go: a chromedp context with fetch
// interception blocking heavy media, generalized from a crawl budget to a
// single-page render that always yields a PageRecord.
package browser

import (
	"context"
	"net/url"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/clark235/agentweb/internal/awerr"
	"github.com/clark235/agentweb/internal/domextract"
	"github.com/clark235/agentweb/internal/obslog"
	"github.com/clark235/agentweb/internal/pagerecord"
)

const (
	DefaultTimeout = 30 * time.Second

	// UserAgent is sent for every browser context, distinct from the lite
	// path's UA (§6).
	UserAgent = "AgentWeb/0.2 (ai-agent-browser)"

	viewportWidth  = 1280
	viewportHeight = 900

	visibleTextWait    = 5 * time.Second
	visibleTextMinimum = 200
	pollInterval       = 150 * time.Millisecond

	maxLinks        = 100
	maxImages       = 50
	maxTables       = 10
	maxRowsPerTable = 50
	headingCap      = 200
	linkTextCap     = 120
	textCap         = 50000
)

// browserExtractOptions captures §4.D's divergence from the lite path: no
// link dedup, a lower link cap, and a much larger text cap since a
// rendered DOM is the authoritative source once a browser was needed at
// all. meta keys from name= are preserved in original case, matching
// property= keys, since the rendered DOM may expose framework-injected
// meta tags whose case carries meaning.
var browserExtractOptions = domextract.Options{
	MaxLinks:            maxLinks,
	DedupeLinks:         false,
	MaxImages:           maxImages,
	MaxTables:           maxTables,
	MaxRowsPerTable:     maxRowsPerTable,
	MaxOptionsPerSelect: 20,
	HeadingTextCap:      headingCap,
	LinkTextCap:         linkTextCap,
	TextContentCap:      textCap,
	LowercaseNameMeta:   false,
}

var blockedResourceTypes = map[network.ResourceType]bool{
	network.ResourceTypeImage:      true,
	network.ResourceTypeStylesheet: true,
	network.ResourceTypeMedia:      true,
	network.ResourceTypeFont:       true,
}

// Options configures a browser render.
type Options struct {
	TimeoutMs int
}

// Render drives a headless Chrome instance to rawURL at the viewport and
// User-Agent §4.D/§6 mandate, blocking heavy media requests the way the
// teacher's render manager does, then extracts a PageRecord from the
// rendered DOM's serialized HTML. The browser context is released on
// every exit path, including errors.
func Render(ctx context.Context, rawURL string, opts Options) (*pagerecord.PageRecord, error) {
	timeout := time.Duration(opts.TimeoutMs) * time.Millisecond
	if opts.TimeoutMs <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(
		append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...),
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var statusCode int64 = 200
	var contentType string
	finalURL := rawURL

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *fetch.EventRequestPaused:
			go handleRequestPaused(browserCtx, e)
		case *network.EventResponseReceived:
			if e.Type == network.ResourceTypeDocument {
				statusCode = e.Response.Status
				contentType = e.Response.MimeType
				finalURL = e.Response.URL
			}
		}
	})

	err := chromedp.Run(browserCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(UserAgent),
		chromedp.EmulateViewport(viewportWidth, viewportHeight),
		fetch.Enable().WithPatterns([]*fetch.RequestPattern{
			{URLPattern: "*"},
		}),
		chromedp.Navigate(rawURL),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, awerr.Wrap(awerr.Timeout, "browser render timed out", err)
		}
		return nil, awerr.Wrap(awerr.BrowserNavigation, "navigation failed", err)
	}

	// Benign: a page that never clears this bar (e.g. a genuinely sparse
	// page) still gets extracted from whatever rendered in the window.
	waitForVisibleText(browserCtx, visibleTextMinimum, visibleTextWait)

	var renderedHTML string
	if err := chromedp.Run(browserCtx, chromedp.OuterHTML("html", &renderedHTML, chromedp.ByQuery)); err != nil {
		if ctx.Err() != nil {
			return nil, awerr.Wrap(awerr.Timeout, "browser render timed out", err)
		}
		return nil, awerr.Wrap(awerr.BrowserNavigation, "serialize rendered document", err)
	}
	if renderedHTML == "" {
		return nil, awerr.New(awerr.BrowserNavigation, "empty rendered document")
	}

	base, perr := url.Parse(finalURL)
	if perr != nil {
		base, _ = url.Parse(rawURL)
	}

	page := domextract.Extract(renderedHTML, base, browserExtractOptions)
	page.HTTPStatus = int(statusCode)
	page.ContentType = contentType
	page.BackendTag = pagerecord.BackendPlaywright
	page.ComputeStats()
	return page, nil
}

// waitForVisibleText polls the live document for up to timeout, returning
// as soon as its visible text exceeds minChars. A timeout here is benign
// per §4.D: the page is extracted from whatever state it reached.
func waitForVisibleText(ctx context.Context, minChars int, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for {
		var length int
		if err := chromedp.Evaluate(
			`document.body ? document.body.innerText.length : 0`, &length,
		).Do(ctx); err == nil && length > minChars {
			return
		}
		if time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(pollInterval):
		}
	}
}

// handleRequestPaused blocks image/stylesheet/media/font requests and lets
// everything else through, the same allow/deny split as the teacher's
// StartRenderManager.
func handleRequestPaused(ctx context.Context, e *fetch.EventRequestPaused) {
	if blockedResourceTypes[e.ResourceType] {
		if err := fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(ctx); err != nil {
			obslog.Log.Debugf("browser: fail request %s: %v", e.RequestID, err)
		}
		return
	}
	if err := fetch.ContinueRequest(e.RequestID).Do(ctx); err != nil {
		obslog.Log.Debugf("browser: continue request %s: %v", e.RequestID, err)
	}
}
