package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/log-viewer/backend/internal/parser"
	"github.com/log-viewer/backend/internal/query"
)

// stdinPath stands for standard input in file arguments.
const stdinPath = "-"

// expandPatterns resolves file arguments to paths. Arguments containing glob
// meta characters are expanded with doublestar, so "logs/**/*.log" recurses.
// Order follows the arguments; duplicates are dropped.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, pattern := range patterns {
		if pattern == stdinPath || !strings.ContainsAny(pattern, "*?[{") {
			add(pattern)
			continue
		}
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
		if err != nil {
			return nil, fmt.Errorf("expanding %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", pattern)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return paths, nil
}

// loadLogs reads and parses every path. Each log is identified by its path.
func loadLogs(paths []string, stdin io.Reader) ([]query.LogEntries, error) {
	logs := make([]query.LogEntries, 0, len(paths))
	for _, p := range paths {
		if p == stdinPath {
			entries, err := parser.ParseReader(stdin)
			if err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			logs = append(logs, query.LogEntries{LogID: p, Entries: entries})
			continue
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		entries := parser.Parse(string(data))
		logger.Debugf("parsed %s: %d entries", p, len(entries))
		logs = append(logs, query.LogEntries{LogID: p, Entries: entries})
	}
	return logs, nil
}

var timeLayouts = []string{time.RFC3339, parser.TimestampLayout, "2006-01-02T15:04:05", "2006-01-02"}

// parseTime accepts RFC 3339, the log's own timestamp layout, or a bare date.
// Times without a zone are UTC.
func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse time %q (use RFC 3339 or %q)", s, parser.TimestampLayout)
}
