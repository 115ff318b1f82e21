// Package cache implements agentweb's persistent, TTL/LRU result cache
// (§4.F), grounded tightly on the research-cli's internal/store/sqlite.go:
// the same modernc.org/sqlite pure-Go driver, WAL pragmas, and
// eris-wrapped error handling, repurposed from a multi-table crawl store
// down to the single page_cache table this spec needs.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/clark235/agentweb/internal/pagerecord"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const schema = `
CREATE TABLE IF NOT EXISTS page_cache (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	url         TEXT NOT NULL,
	query       TEXT NOT NULL DEFAULT '',
	backend     TEXT NOT NULL,
	result_json TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expires_at  DATETIME NOT NULL,
	hit_count   INTEGER NOT NULL DEFAULT 0,
	last_hit    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(url, query)
);
CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_page_cache_last_hit ON page_cache(last_hit);
`

// DefaultTTLMs and DefaultMaxEntries are the §4.F configuration defaults.
const (
	DefaultTTLMs      = 600000
	DefaultMaxEntries = 500
)

// Config enumerates the cache's configuration surface (§4.F).
type Config struct {
	DBPath     string
	MaxEntries int
	TTLMs      int64
	Verbose    bool
}

// DefaultConfig resolves DBPath to "$HOME/.agentweb/cache.db" and fills in
// the rest of §4.F's defaults.
func DefaultConfig() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Config{}, err
	}
	return Config{DBPath: path, MaxEntries: DefaultMaxEntries, TTLMs: DefaultTTLMs}, nil
}

// Store is a single page_cache table backed by a pure-Go SQLite file.
type Store struct {
	db         *sql.DB
	path       string
	maxEntries int
}

// DefaultPath returns "$HOME/.agentweb/cache.db", expanding ~ the way the
// teacher expands paths in its output-file handling.
func DefaultPath() (string, error) {
	dir, err := homedir.Dir()
	if err != nil {
		return "", eris.Wrap(err, "resolve home directory")
	}
	return filepath.Join(dir, ".agentweb", "cache.db"), nil
}

// Open creates (if needed) and migrates the cache database at path, using
// the default maxEntries (500).
func Open(path string) (*Store, error) {
	return OpenWithConfig(Config{DBPath: path, MaxEntries: DefaultMaxEntries})
}

// OpenWithConfig is Open with full control over §4.F's configuration
// surface.
func OpenWithConfig(cfg Config) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, eris.Wrapf(err, "create cache directory for %s", cfg.DBPath)
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.DBPath,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrapf(err, "open cache database %s", cfg.DBPath)
	}
	db.SetMaxOpenConns(10)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, eris.Wrapf(err, "ping cache database %s", cfg.DBPath)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "migrate cache schema")
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	return &Store{db: db, path: cfg.DBPath, maxEntries: maxEntries}, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return eris.Wrap(err, "close cache database")
	}
	return nil
}

// Entry is one cached render result.
type Entry struct {
	URL       string
	Query     string
	Backend   pagerecord.Backend
	Result    pagerecord.PageRecord
	CreatedAt time.Time
	ExpiresAt time.Time
	HitCount  int
	LastHit   time.Time
}

// Get looks up (url, query), returning (entry, true, nil) on a live hit and
// bumping hit_count/last_hit. A miss returns (nil, false, nil). A present
// but expired row is deleted and also reported as a miss (§4.F GET
// semantics).
func (s *Store) Get(ctx context.Context, url, query string) (*Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT url, query, backend, result_json, created_at, expires_at, hit_count, last_hit
		FROM page_cache
		WHERE url = ? AND query = ?
	`, url, query)

	var (
		gotURL, gotQuery, backend, resultJSON string
		createdAt, expiresAt, lastHit         time.Time
		hitCount                              int
	)
	err := row.Scan(&gotURL, &gotQuery, &backend, &resultJSON, &createdAt, &expiresAt, &hitCount, &lastHit)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrapf(err, "query cache for %s", url)
	}

	if expiresAt.Before(time.Now().UTC()) {
		if _, derr := s.db.ExecContext(ctx, `DELETE FROM page_cache WHERE url = ? AND query = ?`, url, query); derr != nil {
			return nil, false, eris.Wrapf(derr, "delete expired entry for %s", url)
		}
		return nil, false, nil
	}

	var rec pagerecord.PageRecord
	if err := json.UnmarshalFromString(resultJSON, &rec); err != nil {
		return nil, false, eris.Wrapf(err, "decode cached result for %s", url)
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE page_cache SET hit_count = hit_count + 1, last_hit = CURRENT_TIMESTAMP
		WHERE url = ? AND query = ?
	`, url, query); err != nil {
		return nil, false, eris.Wrapf(err, "bump hit count for %s", url)
	}

	return &Entry{
		URL:       gotURL,
		Query:     gotQuery,
		Backend:   pagerecord.Backend(backend),
		Result:    rec,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
		HitCount:  hitCount + 1,
		LastHit:   time.Now().UTC(),
	}, true, nil
}

// Set upserts (url, query) with result, expiring after ttl, and then
// triggers eviction to the store's configured maxEntries (§4.F SET
// semantics: "after any set, trigger eviction"). result is sanitized
// (§4.F) before serialization: unserializable fields are dropped rather
// than failing the write.
func (s *Store) Set(ctx context.Context, url, query string, backend pagerecord.Backend, result pagerecord.PageRecord, ttl time.Duration) error {
	clean := sanitize(result, 0)
	buf, err := json.Marshal(clean)
	if err != nil {
		return eris.Wrapf(err, "encode result for %s", url)
	}

	expiresAt := time.Now().UTC().Add(ttl)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO page_cache (url, query, backend, result_json, created_at, expires_at, hit_count, last_hit)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, ?, 0, CURRENT_TIMESTAMP)
		ON CONFLICT(url, query) DO UPDATE SET
			backend = excluded.backend,
			result_json = excluded.result_json,
			created_at = CURRENT_TIMESTAMP,
			expires_at = excluded.expires_at,
			hit_count = 0,
			last_hit = CURRENT_TIMESTAMP
	`, url, query, string(backend), string(buf), expiresAt)
	if err != nil {
		return eris.Wrapf(err, "upsert cache entry for %s", url)
	}

	if _, err := s.EvictToCapacity(ctx, s.maxEntries); err != nil {
		return eris.Wrapf(err, "evict after set for %s", url)
	}
	return nil
}

// Invalidate deletes every cached entry (across all queries) for url.
func (s *Store) Invalidate(ctx context.Context, url string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM page_cache WHERE url = ?`, url)
	if err != nil {
		return 0, eris.Wrapf(err, "invalidate cache entries for %s", url)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "read rows affected")
	}
	return n, nil
}

// PurgeExpired deletes every row past its expiry and returns the count.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM page_cache WHERE expires_at <= CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, eris.Wrap(err, "purge expired cache entries")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "read rows affected")
	}
	return n, nil
}

// EvictToCapacity trims the table to at most maxRows: expired rows go
// first, then the least-recently-hit rows, until at or under the cap
// (§4.F eviction ordering).
func (s *Store) EvictToCapacity(ctx context.Context, maxRows int) (int64, error) {
	purged, err := s.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_cache`).Scan(&total); err != nil {
		return purged, eris.Wrap(err, "count cache rows")
	}
	if total <= maxRows {
		return purged, nil
	}

	excess := total - maxRows
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM page_cache WHERE id IN (
			SELECT id FROM page_cache ORDER BY last_hit ASC LIMIT ?
		)
	`, excess)
	if err != nil {
		return purged, eris.Wrap(err, "evict lru cache rows")
	}
	evicted, err := res.RowsAffected()
	if err != nil {
		return purged, eris.Wrap(err, "read rows affected")
	}
	return purged + evicted, nil
}

// HitRow is one row of the stats's top-hits list.
type HitRow struct {
	URL      string `json:"url"`
	Query    string `json:"query"`
	HitCount int    `json:"hitCount"`
}

// Stats summarizes the cache table (§4.F / §6 cacheStats operation).
type Stats struct {
	Entries  int64            `json:"entries"`
	Expired  int64            `json:"expired"`
	Active   int64            `json:"active"`
	Backends map[string]int64 `json:"backends"`
	OldestMs int64            `json:"oldestMs"`
	TopHits  []HitRow         `json:"topHits"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN expires_at <= CURRENT_TIMESTAMP THEN 1 ELSE 0 END), 0)
		FROM page_cache
	`)
	if err := row.Scan(&st.Entries, &st.Expired); err != nil {
		return Stats{}, eris.Wrap(err, "query cache stats")
	}
	st.Active = st.Entries - st.Expired

	backendRows, err := s.db.QueryContext(ctx, `SELECT backend, COUNT(*) FROM page_cache GROUP BY backend`)
	if err != nil {
		return Stats{}, eris.Wrap(err, "query cache backend breakdown")
	}
	defer backendRows.Close()
	st.Backends = make(map[string]int64)
	for backendRows.Next() {
		var backend string
		var count int64
		if err := backendRows.Scan(&backend, &count); err != nil {
			return Stats{}, eris.Wrap(err, "scan cache backend breakdown")
		}
		st.Backends[backend] = count
	}
	if err := backendRows.Err(); err != nil {
		return Stats{}, eris.Wrap(err, "iterate cache backend breakdown")
	}

	var oldest sql.NullTime
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(created_at) FROM page_cache`).Scan(&oldest); err != nil {
		return Stats{}, eris.Wrap(err, "query oldest cache entry")
	}
	if oldest.Valid {
		st.OldestMs = time.Since(oldest.Time).Milliseconds()
	}

	hitRows, err := s.db.QueryContext(ctx, `
		SELECT url, query, hit_count FROM page_cache ORDER BY hit_count DESC LIMIT 5
	`)
	if err != nil {
		return Stats{}, eris.Wrap(err, "query top cache hits")
	}
	defer hitRows.Close()
	for hitRows.Next() {
		var h HitRow
		if err := hitRows.Scan(&h.URL, &h.Query, &h.HitCount); err != nil {
			return Stats{}, eris.Wrap(err, "scan top cache hits")
		}
		st.TopHits = append(st.TopHits, h)
	}
	if err := hitRows.Err(); err != nil {
		return Stats{}, eris.Wrap(err, "iterate top cache hits")
	}

	return st, nil
}
