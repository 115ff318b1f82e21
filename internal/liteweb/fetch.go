// Package liteweb implements the scriptless fetch-and-parse renderer
// (§4.B) — the lite path. Fetching is grounded on the teacher's
// DefaultHTTPTransport/fetchOnce pattern in spider.go: a colly.Collector
// configured with a tuned *http.Transport, driving a single synchronous
// request/response round trip instead of a crawl.
package liteweb

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/clark235/agentweb/internal/awerr"
)

const (
	// UserAgent is sent on every lite fetch, exactly as §6 specifies.
	UserAgent      = "AgentWeb/0.2 (AI Agent Renderer)"
	AcceptHeader   = "text/html,application/xhtml+xml"
	AcceptLanguage = "en-US,en;q=0.9"

	DefaultTimeout = 15 * time.Second
)

// DefaultHTTPTransport mirrors the teacher's transport tuning: bounded
// dial/keepalive/idle timeouts and secure-by-default TLS.
var DefaultHTTPTransport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	MaxIdleConns:    100,
	MaxConnsPerHost: 1000,
	IdleConnTimeout: 30 * time.Second,
	TLSClientConfig: &tls.Config{
		InsecureSkipVerify: false,
		Renegotiation:      tls.RenegotiateOnceAsClient,
	},
}

// FetchResult is the raw HTTP exchange the orchestrator shares between
// SPA detection and lite rendering (§4.G step 2 — "single fetch").
type FetchResult struct {
	FinalURL    *url.URL
	Body        []byte
	StatusCode  int
	ContentType string
}

// FetchRawHTML performs one GET against rawURL, following redirects and
// recording the final URL, with the §4.B headers. timeout <= 0 uses
// DefaultTimeout. Non-2xx responses fail with awerr.FetchStatus; transport
// failures with awerr.FetchFailure; exceeding timeout with awerr.Timeout;
// ctx cancellation with awerr.Cancelled.
func FetchRawHTML(ctx context.Context, rawURL string, timeout time.Duration) (*FetchResult, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if _, err := url.Parse(rawURL); err != nil {
		return nil, awerr.Wrap(awerr.FetchFailure, "parse url", err)
	}

	type outcome struct {
		res *FetchResult
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		c := colly.NewCollector(colly.IgnoreRobotsTxt())

		client := &http.Client{Timeout: timeout}
		t := *DefaultHTTPTransport
		client.Transport = &t
		c.SetClient(client)

		c.OnRequest(func(r *colly.Request) {
			r.Headers.Set("User-Agent", UserAgent)
			r.Headers.Set("Accept", AcceptHeader)
			r.Headers.Set("Accept-Language", AcceptLanguage)
		})

		var result *FetchResult
		var fetchErr error

		c.OnResponse(func(r *colly.Response) {
			if r.StatusCode < 200 || r.StatusCode >= 300 {
				fetchErr = awerr.New(awerr.FetchStatus, fmt.Sprintf("non-2xx status %d", r.StatusCode))
				return
			}
			result = &FetchResult{
				FinalURL:    r.Request.URL,
				Body:        append([]byte(nil), r.Body...),
				StatusCode:  r.StatusCode,
				ContentType: r.Headers.Get("Content-Type"),
			}
		})

		c.OnError(func(r *colly.Response, cerr error) {
			if r != nil && r.StatusCode != 0 {
				fetchErr = awerr.Wrap(awerr.FetchStatus, fmt.Sprintf("status %d", r.StatusCode), cerr)
				return
			}
			var ne net.Error
			if errors.As(cerr, &ne) && ne.Timeout() {
				fetchErr = awerr.Wrap(awerr.Timeout, "fetch deadline exceeded", cerr)
				return
			}
			fetchErr = awerr.Wrap(awerr.FetchFailure, "request failed", cerr)
		})

		visitErr := c.Visit(rawURL)
		c.Wait()

		if fetchErr != nil {
			done <- outcome{nil, fetchErr}
			return
		}
		if visitErr != nil {
			done <- outcome{nil, awerr.Wrap(awerr.FetchFailure, "visit", visitErr)}
			return
		}
		if result == nil {
			done <- outcome{nil, awerr.New(awerr.FetchFailure, "empty response")}
			return
		}
		done <- outcome{result, nil}
	}()

	select {
	case <-ctx.Done():
		return nil, awerr.Wrap(awerr.Cancelled, "fetch cancelled", ctx.Err())
	case o := <-done:
		return o.res, o.err
	case <-time.After(timeout + 3*time.Second):
		return nil, awerr.New(awerr.Timeout, "fetch deadline exceeded")
	}
}
