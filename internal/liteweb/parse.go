package liteweb

import (
	"net/url"

	"github.com/clark235/agentweb/internal/domextract"
	"github.com/clark235/agentweb/internal/pagerecord"
)

// liteExtractOptions are the §4.B extraction knobs: links deduped and
// capped at 200, text capped at 5000, meta name= keys lowercased.
var liteExtractOptions = domextract.Options{
	MaxLinks:            maxLinks,
	DedupeLinks:         true,
	MaxImages:           maxImages,
	MaxTables:           maxTables,
	MaxRowsPerTable:     maxRowsPerTable,
	MaxOptionsPerSelect: maxOptionsPerSelect,
	HeadingTextCap:      headingCap,
	LinkTextCap:         linkTextCap,
	TextContentCap:      textCap,
	LowercaseNameMeta:   true,
}

func parseDocument(raw string, base *url.URL) *pagerecord.PageRecord {
	return domextract.Extract(raw, base, liteExtractOptions)
}
