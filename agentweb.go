// Package agentweb turns a URL into a structured, agent-friendly
// representation of the page behind it: a normalized PageRecord, ranked
// semantic Chunks, and a render path that escalates from a scriptless HTML
// fetch to a headless browser only when the page needs it (§4.G).
package agentweb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clark235/agentweb/internal/awerr"
	"github.com/clark235/agentweb/internal/browser"
	"github.com/clark235/agentweb/internal/cache"
	"github.com/clark235/agentweb/internal/chunk"
	"github.com/clark235/agentweb/internal/liteweb"
	"github.com/clark235/agentweb/internal/obslog"
	"github.com/clark235/agentweb/internal/pagerecord"
	"github.com/clark235/agentweb/internal/singleflight"
	"github.com/clark235/agentweb/internal/spa"
)

const (
	DefaultLiteTimeout    = 15 * time.Second
	DefaultBrowserTimeout = 30 * time.Second
	DefaultPlaywrightTTL  = 5 * time.Minute
	DefaultTTL            = 10 * time.Minute
	defaultChunkLimit     = 8
	summaryDegradedChars  = 2000
)

// RenderOptions configures one Render call. Query, if set, ranks Chunks by
// relevance instead of taking the first ChunkLimit as-is. ForceBrowser and
// ForceLite are mutually exclusive overrides of backend detection; either
// one also bypasses the cache (§4.G step 1).
type RenderOptions struct {
	Query        string
	ForceBrowser bool
	ForceLite    bool
	NoCache      bool
	TimeoutMs    int
	ChunkLimit   int
}

// RenderResult is the outward-facing result of a Render call (§6).
type RenderResult struct {
	Page        pagerecord.PageRecord `json:"page"`
	Chunks      []chunk.Chunk         `json:"chunks"`
	Summary     string                `json:"summary"`
	Cached      bool                  `json:"cached"`
	DetectedSPA bool                  `json:"detectedSpa"`
	ElapsedMs   int64                 `json:"elapsedMs"`
}

// Orchestrator is the single entry point for rendering and cache
// management (§4.G, §6). The zero value is not usable; construct with New.
type Orchestrator struct {
	Cache *cache.Store

	LiteTimeout    time.Duration
	BrowserTimeout time.Duration
	PlaywrightTTL  time.Duration
	DefaultTTL     time.Duration

	sf singleflight.Group
}

// New builds an Orchestrator around an (optional) cache store. A nil store
// disables caching: every Render is a live fetch.
func New(store *cache.Store) *Orchestrator {
	return &Orchestrator{
		Cache:          store,
		LiteTimeout:    DefaultLiteTimeout,
		BrowserTimeout: DefaultBrowserTimeout,
		PlaywrightTTL:  DefaultPlaywrightTTL,
		DefaultTTL:     DefaultTTL,
	}
}

// Render is the one operation most callers need: fetch, detect, render,
// chunk, cache, in that order, coalescing concurrent identical requests.
func (o *Orchestrator) Render(ctx context.Context, rawURL string, opts RenderOptions) (*RenderResult, error) {
	start := time.Now()
	key := rawURL + "\x00" + opts.Query

	v, err, _, _ := o.sf.Do(key, func() (interface{}, error) {
		return o.renderUncached(ctx, rawURL, opts)
	})
	if err != nil {
		return nil, err
	}

	result := *v.(*RenderResult)
	result.ElapsedMs = time.Since(start).Milliseconds()
	return &result, nil
}

func (o *Orchestrator) renderUncached(ctx context.Context, rawURL string, opts RenderOptions) (*RenderResult, error) {
	forced := opts.ForceBrowser || opts.ForceLite
	if !opts.NoCache && !forced && o.Cache != nil {
		entry, ok, err := o.Cache.Get(ctx, rawURL, opts.Query)
		if err != nil {
			obslog.Log.Warnf("cache lookup failed for %s: %v", rawURL, err)
		} else if ok {
			chunks := rankOrLimit(chunk.Generate(&entry.Result), opts)
			return &RenderResult{Page: entry.Result, Chunks: chunks, Summary: renderSummary(chunks, &entry.Result), Cached: true}, nil
		}
	}

	liteTimeout := o.LiteTimeout
	if opts.TimeoutMs > 0 {
		liteTimeout = time.Duration(opts.TimeoutMs) * time.Millisecond
	}
	fr, err := liteweb.FetchRawHTML(ctx, rawURL, liteTimeout)
	if err != nil {
		return nil, err
	}

	report := spa.Detect(string(fr.Body))

	var page *pagerecord.PageRecord
	switch {
	case opts.ForceLite:
		page, err = liteweb.Render(ctx, rawURL, liteweb.Options{PreFetched: fr})
		if err != nil {
			return nil, err
		}
	case opts.ForceBrowser || report.IsSPA:
		page, err = browser.Render(ctx, rawURL, browser.Options{TimeoutMs: opts.TimeoutMs})
		if err != nil {
			obslog.Log.Warnf("browser render failed for %s, falling back to lite: %v", rawURL, err)
			page, err = liteweb.Render(ctx, rawURL, liteweb.Options{PreFetched: fr})
			if err != nil {
				return nil, err
			}
			page.BackendTag = pagerecord.BackendLiteFallback
			page.ComputeStats()
		}
	default:
		page, err = liteweb.Render(ctx, rawURL, liteweb.Options{PreFetched: fr})
		if err != nil {
			return nil, err
		}
	}

	chunks := chunk.Generate(page)
	relevant := rankOrLimit(chunks, opts)
	summary := renderSummary(relevant, page)

	if !opts.NoCache && o.Cache != nil {
		ttl := o.DefaultTTL
		if page.BackendTag == pagerecord.BackendPlaywright {
			ttl = o.PlaywrightTTL
		}
		if err := o.Cache.Set(ctx, rawURL, opts.Query, page.BackendTag, *page, ttl); err != nil {
			obslog.Log.Warnf("cache write failed for %s: %v", rawURL, err)
		}
	}

	return &RenderResult{Page: *page, Chunks: relevant, Summary: summary, Cached: false, DetectedSPA: report.IsSPA}, nil
}

// rankOrLimit applies query ranking when a query is set, else takes the
// first chunkLimit chunks as generated (§4.G step 6).
func rankOrLimit(chunks []chunk.Chunk, opts RenderOptions) []chunk.Chunk {
	limit := opts.ChunkLimit
	if limit <= 0 {
		limit = defaultChunkLimit
	}
	if opts.Query != "" {
		return chunk.FindRelevant(chunks, opts.Query, limit)
	}
	if limit > len(chunks) {
		limit = len(chunks)
	}
	return chunks[:limit]
}

// renderSummary renders chunks in the canonical wire format (§6): each
// chunk as "[chunk:<id>] type=<t> [section=\"<s>\"] score=<n>\n<text>",
// separated by a blank-line-surrounded "---". A panic anywhere in chunk
// rendering degrades to the first 2,000 chars of the page's text content.
func renderSummary(chunks []chunk.Chunk, page *pagerecord.PageRecord) (summary string) {
	defer func() {
		if r := recover(); r != nil {
			obslog.Log.Warnf("summary rendering panicked, degrading: %v", r)
			summary = pagerecord.Truncate(page.TextContent, summaryDegradedChars)
		}
	}()

	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		var header strings.Builder
		fmt.Fprintf(&header, "[chunk:%d] type=%s", c.ID, c.Type)
		if c.Section != nil && *c.Section != "" {
			fmt.Fprintf(&header, " section=%q", *c.Section)
		}
		fmt.Fprintf(&header, " score=%d", c.Score)
		parts = append(parts, header.String()+"\n"+c.Text)
	}
	if len(parts) == 0 {
		return pagerecord.Truncate(page.TextContent, summaryDegradedChars)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// CacheStats reports cache occupancy (§6).
func (o *Orchestrator) CacheStats(ctx context.Context) (cache.Stats, error) {
	if o.Cache == nil {
		return cache.Stats{}, awerr.New(awerr.CacheIO, "cache not configured")
	}
	return o.Cache.Stats(ctx)
}

// InvalidateCache drops every cached entry for url, across all queries.
func (o *Orchestrator) InvalidateCache(ctx context.Context, url string) (int64, error) {
	if o.Cache == nil {
		return 0, awerr.New(awerr.CacheIO, "cache not configured")
	}
	return o.Cache.Invalidate(ctx, url)
}

// DetectSPA runs the SPA heuristic against already-fetched HTML, without
// performing a render (§6).
func DetectSPA(html string) spa.Report {
	return spa.Detect(html)
}
