package query

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/log-viewer/backend/internal/models"
	"github.com/log-viewer/backend/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoLines = "[2025-01-01, 10:00:00] [INFO] Server started\n" +
	"[2025-01-01, 10:00:01] [ERROR] Boom - {\"code\":500}"

func params(fn func(p *models.QueryParams)) models.QueryParams {
	p := models.NewQueryParams()
	if fn != nil {
		fn(&p)
	}
	return p
}

// sequence builds n entries one second apart; messages are "line N" unless
// overridden.
func sequence(n int, override map[int]string) []models.LogEntry {
	var sb strings.Builder
	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		msg := fmt.Sprintf("line %d", i)
		if o, ok := override[i]; ok {
			msg = o
		}
		fmt.Fprintf(&sb, "[%s] [INFO] %s\n", base.Add(time.Duration(i)*time.Second).Format(parser.TimestampLayout), msg)
	}
	return parser.Parse(sb.String())
}

func indexes(r models.QueryResult) []int {
	out := make([]int, 0, len(r.Entries))
	for _, e := range r.Entries {
		out = append(out, e.Index)
	}
	return out
}

func TestQueryLevelFilter(t *testing.T) {
	entries := parser.Parse(twoLines)

	r := Query(entries, params(func(p *models.QueryParams) { p.Level = models.LevelError }))
	require.Len(t, r.Entries, 1)
	assert.Equal(t, 1, r.TotalMatches)
	assert.Equal(t, "Boom", r.Entries[0].Message)
	assert.False(t, r.Truncated)
}

func TestQuerySearchIsCaseInsensitive(t *testing.T) {
	entries := parser.Parse(twoLines)

	r := Query(entries, params(func(p *models.QueryParams) { p.SearchQuery = "server" }))
	require.Len(t, r.Entries, 1)
	assert.Equal(t, "Server started", r.Entries[0].Message)
	assert.Equal(t, 1, r.TotalMatches)
}

func TestQuerySearchData(t *testing.T) {
	entries := parser.Parse(twoLines)

	standard := Query(entries, params(func(p *models.QueryParams) { p.SearchQuery = "500" }))
	assert.Equal(t, 1, standard.TotalMatches)

	full := Query(entries, params(func(p *models.QueryParams) {
		p.SearchQuery = `"CODE"`
		p.Verbosity = models.VerbosityFull
	}))
	assert.Equal(t, 1, full.TotalMatches)

	compact := Query(entries, params(func(p *models.QueryParams) {
		p.SearchQuery = "500"
		p.Verbosity = models.VerbosityCompact
	}))
	assert.Equal(t, 0, compact.TotalMatches)
	assert.Empty(t, compact.Entries)
}

func TestQueryEmptyInput(t *testing.T) {
	r := Query(nil, params(func(p *models.QueryParams) { p.Limit = 10 }))
	assert.NotNil(t, r.Entries)
	assert.Empty(t, r.Entries)
	assert.Equal(t, 0, r.TotalMatches)
	assert.False(t, r.Truncated)
}

func TestQueryContextLines(t *testing.T) {
	entries := sequence(10, map[int]string{5: "found x here"})

	r := Query(entries, params(func(p *models.QueryParams) {
		p.SearchQuery = "x"
		p.ContextLines = 1
		p.Verbosity = models.VerbosityFull
	}))

	assert.Equal(t, 1, r.TotalMatches)
	assert.Equal(t, []int{4, 5, 6}, indexes(r))
	assert.True(t, r.Entries[0].Context)
	assert.False(t, r.Entries[1].Context)
	assert.True(t, r.Entries[2].Context)
}

func TestQueryContextOverlapIsDeduplicated(t *testing.T) {
	entries := sequence(10, map[int]string{2: "x", 4: "x", 9: "x"})

	r := Query(entries, params(func(p *models.QueryParams) {
		p.SearchQuery = "x"
		p.ContextLines = 2
	}))

	assert.Equal(t, 3, r.TotalMatches)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, indexes(r))
}

func TestQueryContextWithoutFilterIsNoop(t *testing.T) {
	entries := sequence(4, nil)

	r := Query(entries, params(func(p *models.QueryParams) { p.ContextLines = 3 }))
	assert.Equal(t, 4, r.TotalMatches)
	assert.Equal(t, []int{0, 1, 2, 3}, indexes(r))
}

func TestQueryContextCanIncludeGarbage(t *testing.T) {
	entries := parser.Parse("[2025-01-01, 10:00:00] [INFO] a\n" +
		"stack trace line\n" +
		"[2025-01-01, 10:00:01] [ERROR] b\n")

	r := Query(entries, params(func(p *models.QueryParams) {
		p.Level = models.LevelError
		p.ContextLines = 1
	}))
	assert.Equal(t, 1, r.TotalMatches)
	require.Equal(t, []int{1, 2}, indexes(r))
	assert.Nil(t, r.Entries[0].Level)
	assert.Nil(t, r.Entries[0].Timestamp)
}

func TestQueryPagination(t *testing.T) {
	entries := sequence(10, nil)

	tests := []struct {
		name      string
		limit     int
		offset    int
		want      []int
		truncated bool
	}{
		{"first page", 3, 0, []int{0, 1, 2}, true},
		{"middle page", 3, 3, []int{3, 4, 5}, true},
		{"exact end", 4, 6, []int{6, 7, 8, 9}, false},
		{"offset past end", 5, 10, []int{}, false},
		{"no limit", models.NoLimit, 2, []int{2, 3, 4, 5, 6, 7, 8, 9}, false},
		{"zero limit", 0, 0, []int{}, true},
		{"negative offset clamps", 2, -4, []int{0, 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Query(entries, params(func(p *models.QueryParams) {
				p.Limit = tt.limit
				p.Offset = tt.offset
			}))
			assert.Equal(t, tt.want, indexes(r))
			assert.Equal(t, tt.truncated, r.Truncated)
			assert.Equal(t, 10, r.TotalMatches)
		})
	}
}

func TestQueryLatest(t *testing.T) {
	entries := sequence(10, nil)

	r := Query(entries, params(func(p *models.QueryParams) {
		p.Latest = true
		p.Limit = 3
	}))
	assert.Equal(t, []int{9, 8, 7}, indexes(r))
	assert.True(t, r.Truncated)

	next := Query(entries, params(func(p *models.QueryParams) {
		p.Latest = true
		p.Limit = 3
		p.Offset = 9
	}))
	assert.Equal(t, []int{0}, indexes(next))
	assert.False(t, next.Truncated)
}

func TestQueryTimeRange(t *testing.T) {
	entries := parser.Parse("[2025-01-01, 10:00:00] [INFO] a\n" +
		"junk\n" +
		"[2025-01-01, 10:00:05] [INFO] b\n" +
		"[2025-01-01, 10:00:10] [INFO] c\n")

	r := Query(entries, params(func(p *models.QueryParams) {
		p.Since = time.Date(2025, 1, 1, 10, 0, 5, 0, time.UTC)
		p.Until = time.Date(2025, 1, 1, 10, 0, 10, 0, time.UTC)
	}))
	assert.Equal(t, []int{2, 3}, indexes(r))
}

func TestQueryTimeRangeKeepsEarliestTimestamp(t *testing.T) {
	entries := parser.Parse("[0001-01-01, 00:00:00] [INFO] epoch\n" +
		"junk\n" +
		"[2025-01-01, 10:00:00] [INFO] later\n")

	r := Query(entries, params(func(p *models.QueryParams) {
		p.Until = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	assert.Equal(t, []int{0}, indexes(r))
	require.NotNil(t, r.Entries[0].Timestamp)
	assert.True(t, r.Entries[0].Timestamp.IsZero())
}

func TestQueryLevelFilterExcludesGarbage(t *testing.T) {
	entries := parser.Parse("[2025-01-01, 10:00:00] [INFO] alpha\nalpha garbage\n")

	all := Query(entries, params(func(p *models.QueryParams) { p.SearchQuery = "alpha" }))
	assert.Equal(t, 2, all.TotalMatches)

	filtered := Query(entries, params(func(p *models.QueryParams) {
		p.SearchQuery = "alpha"
		p.Level = models.LevelInfo
	}))
	assert.Equal(t, []int{0}, indexes(filtered))
}

func TestQueryDoesNotMutateInput(t *testing.T) {
	entries := parser.Parse(twoLines + "\nnoise")
	before := parser.Parse(twoLines + "\nnoise")

	Query(entries, params(func(p *models.QueryParams) {
		p.SearchQuery = "boom"
		p.ContextLines = 2
		p.Latest = true
		p.Verbosity = models.VerbosityFull
	}))
	assert.Equal(t, before, entries)
}

func TestQueryIsDeterministic(t *testing.T) {
	entries := sequence(20, map[int]string{3: "x", 11: "x"})
	p := params(func(p *models.QueryParams) {
		p.SearchQuery = "x"
		p.ContextLines = 2
		p.Limit = 4
		p.Offset = 1
		p.Verbosity = models.VerbosityFull
	})
	assert.Equal(t, Query(entries, p), Query(entries, p))
}

func TestQueryResultNeverExceedsLimit(t *testing.T) {
	entries := sequence(50, map[int]string{1: "x", 20: "x", 40: "x"})
	for limit := 0; limit < 12; limit++ {
		r := Query(entries, params(func(p *models.QueryParams) {
			p.SearchQuery = "x"
			p.ContextLines = 3
			p.Limit = limit
		}))
		assert.LessOrEqual(t, len(r.Entries), limit)
		assert.Equal(t, 3, r.TotalMatches)
	}
}

func TestQueryLogsKeepsContextInsideEachLog(t *testing.T) {
	first := sequence(3, map[int]string{2: "x"})
	second := sequence(3, map[int]string{0: "x"})

	r := QueryLogs([]LogEntries{
		{LogID: "a", Entries: first},
		{LogID: "b", Entries: second},
	}, params(func(p *models.QueryParams) {
		p.SearchQuery = "x"
		p.ContextLines = 1
	}))

	assert.Equal(t, 2, r.TotalMatches)
	require.Len(t, r.Entries, 4)
	assert.Equal(t, []int{1, 2, 0, 1}, indexes(r))
	assert.Equal(t, "a", r.Entries[0].LogID)
	assert.Equal(t, "a", r.Entries[1].LogID)
	assert.Equal(t, "b", r.Entries[2].LogID)
	assert.Equal(t, "b", r.Entries[3].LogID)
}

func TestQueryUnknownVerbosityFallsBackToStandard(t *testing.T) {
	entries := parser.Parse(twoLines)

	r := Query(entries, params(func(p *models.QueryParams) { p.Verbosity = "loud" }))
	require.Len(t, r.Entries, 2)
	assert.Equal(t, `{"code":500}`, r.Entries[1].DataPreview)
	assert.Nil(t, r.Entries[1].Data)
}

func BenchmarkQuerySearch(b *testing.B) {
	override := map[int]string{}
	for i := 0; i < 10000; i += 97 {
		override[i] = "needle"
	}
	entries := sequence(10000, override)
	p := params(func(p *models.QueryParams) {
		p.SearchQuery = "NEEDLE"
		p.ContextLines = 2
		p.Limit = 100
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Query(entries, p)
	}
}
