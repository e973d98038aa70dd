// Package query filters, pages and renders parsed log entries.
//
// A query runs in a fixed order: level filter, time filter, search filter,
// context expansion, pagination, rendering. It is a pure function of its
// inputs; entries passed in are never modified.
package query

import (
	"strings"
	"time"

	"github.com/log-viewer/backend/internal/models"
)

// LogEntries is the parsed content of one log, tagged with its ID.
type LogEntries struct {
	LogID   string
	Entries []models.LogEntry
}

// hit is a selected entry: a position inside one segment.
type hit struct {
	seg     int
	pos     int
	context bool
}

// Query runs params against a single parsed log.
func Query(entries []models.LogEntry, params models.QueryParams) models.QueryResult {
	return QueryLogs([]LogEntries{{Entries: entries}}, params)
}

// QueryLogs runs params against several logs as one ordered sequence, in the
// order given. Context lines never cross from one log into another.
func QueryLogs(logs []LogEntries, params models.QueryParams) models.QueryResult {
	params = normalize(params)
	m := newMatcher(params)

	var matches []hit
	for s := range logs {
		entries := logs[s].Entries
		for i := range entries {
			if m.match(&entries[i]) {
				matches = append(matches, hit{seg: s, pos: i})
			}
		}
	}

	result := models.QueryResult{
		Entries:      []models.RenderedEntry{},
		TotalMatches: len(matches),
	}

	selected := matches
	if params.ContextLines > 0 && m.active() {
		selected = expandContext(logs, matches, params.ContextLines)
	}

	page, truncated := paginate(selected, params)
	result.Truncated = truncated

	for _, h := range page {
		rendered := Render(&logs[h.seg].Entries[h.pos], params.Verbosity, h.context)
		rendered.LogID = logs[h.seg].LogID
		result.Entries = append(result.Entries, rendered)
	}

	return result
}

// normalize clamps out-of-contract params instead of failing.
func normalize(p models.QueryParams) models.QueryParams {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.ContextLines < 0 {
		p.ContextLines = 0
	}
	if p.Limit < 0 {
		p.Limit = models.NoLimit
	}
	if v, ok := models.ParseVerbosity(string(p.Verbosity)); ok {
		p.Verbosity = v
	} else {
		p.Verbosity = models.VerbosityStandard
	}
	return p
}

// matcher applies the level, time and search filters to one entry.
type matcher struct {
	level      models.Level
	since      time.Time
	until      time.Time
	query      string // lower-cased
	searchData bool
}

func newMatcher(p models.QueryParams) *matcher {
	return &matcher{
		level:      p.Level,
		since:      p.Since,
		until:      p.Until,
		query:      strings.ToLower(p.SearchQuery),
		searchData: p.Verbosity != models.VerbosityCompact,
	}
}

// active reports whether any filter can drop an entry.
func (m *matcher) active() bool {
	return m.level != "" || m.query != "" || !m.since.IsZero() || !m.until.IsZero()
}

func (m *matcher) match(e *models.LogEntry) bool {
	// Garbage entries have no level and never equal a requested one.
	if m.level != "" && e.Level != m.level {
		return false
	}

	if !m.since.IsZero() || !m.until.IsZero() {
		if !e.HasTimestamp() {
			return false
		}
		if !m.since.IsZero() && e.Timestamp.Before(m.since) {
			return false
		}
		if !m.until.IsZero() && e.Timestamp.After(m.until) {
			return false
		}
	}

	if m.query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(e.Message), m.query) {
		return true
	}
	return m.searchData && e.Data != nil &&
		strings.Contains(strings.ToLower(e.Data.String()), m.query)
}

// expandContext adds up to n neighbours before and after every match,
// grep -C style. matches must be sorted by (seg, pos); so is the output.
func expandContext(logs []LogEntries, matches []hit, n int) []hit {
	out := make([]hit, 0, len(matches)*(2*n+1))

	covered, seg := -1, -1
	for i, h := range matches {
		if h.seg != seg {
			seg, covered = h.seg, -1
		}

		lo := h.pos - n
		if lo <= covered {
			lo = covered + 1
		}
		for q := lo; q < h.pos; q++ {
			out = append(out, hit{seg: seg, pos: q, context: true})
		}
		out = append(out, h)
		covered = h.pos

		hi := h.pos + n
		if last := len(logs[seg].Entries) - 1; hi > last {
			hi = last
		}
		if i+1 < len(matches) && matches[i+1].seg == seg && matches[i+1].pos <= hi {
			hi = matches[i+1].pos - 1
		}
		for q := covered + 1; q <= hi; q++ {
			out = append(out, hit{seg: seg, pos: q, context: true})
			covered = q
		}
	}

	return out
}

// paginate applies offset and limit; latest mode pages newest first.
// The bool reports whether entries remain past the returned page.
func paginate(hits []hit, p models.QueryParams) ([]hit, bool) {
	if p.Latest {
		reversed := make([]hit, len(hits))
		for i, h := range hits {
			reversed[len(hits)-1-i] = h
		}
		hits = reversed
	}

	if p.Offset >= len(hits) {
		return nil, false
	}
	rest := hits[p.Offset:]
	if p.Limit >= 0 && p.Limit < len(rest) {
		return rest[:p.Limit], true
	}
	return rest, false
}
