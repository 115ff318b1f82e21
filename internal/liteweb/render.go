package liteweb

import (
	"context"
	"net/url"
	"time"

	"github.com/clark235/agentweb/internal/pagerecord"
)

// Options configures a lite render. PreFetched lets the orchestrator reuse
// the one fetch it already performed for SPA detection (§4.G step 2),
// skipping a second round trip.
type Options struct {
	TimeoutMs   int
	PreFetched  *FetchResult
}

const (
	textCap    = 5000
	headingCap = 200
	linkTextCap = 120
	maxLinks   = 200
	maxImages  = 50
	maxTables  = 10
	maxRowsPerTable = 50
	maxOptionsPerSelect = 20
)

// Render produces a PageRecord for rawURL using only regex-based HTML
// primitives — no script execution, no DOM (§4.B).
func Render(ctx context.Context, rawURL string, opts Options) (*pagerecord.PageRecord, error) {
	fr := opts.PreFetched
	if fr == nil {
		timeout := time.Duration(opts.TimeoutMs) * time.Millisecond
		if opts.TimeoutMs <= 0 {
			timeout = DefaultTimeout
		}
		var err error
		fr, err = FetchRawHTML(ctx, rawURL, timeout)
		if err != nil {
			return nil, err
		}
	}

	base := fr.FinalURL
	if base == nil {
		var err error
		base, err = url.Parse(rawURL)
		if err != nil {
			base = &url.URL{}
		}
	}

	page := parseDocument(string(fr.Body), base)
	page.HTTPStatus = fr.StatusCode
	page.ContentType = fr.ContentType
	page.BackendTag = pagerecord.BackendLite
	page.ComputeStats()
	return page, nil
}
