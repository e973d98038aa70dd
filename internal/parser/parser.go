// Package parser turns raw log blobs into structured entries.
//
// The accepted line format is
//
//	[YYYY-MM-DD, HH:MM:SS] [LEVEL] MESSAGE
//	[YYYY-MM-DD, HH:MM:SS] [LEVEL] MESSAGE - DATA
//
// where LEVEL is one of LOG, ERROR, INFO, WARN, DEBUG and DATA is a JSON value.
// Parsing never fails: lines that do not fit become garbage entries that keep
// the original text.
package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/log-viewer/backend/internal/models"
)

// TimestampLayout is the time.Format layout of the bracketed timestamp.
const TimestampLayout = "2006-01-02, 15:04:05"

// dataSeparator splits MESSAGE from the JSON DATA suffix.
const dataSeparator = " - "

// maxScannerBuffer bounds the longest line ParseReader accepts.
const maxScannerBuffer = 1024 * 1024

// Parse splits blob into lines and parses each non-blank one.
// Indexes are dense over the surviving lines.
func Parse(blob string) []models.LogEntry {
	entries := make([]models.LogEntry, 0, strings.Count(blob, "\n")+1)
	for len(blob) > 0 {
		line := blob
		if i := strings.IndexByte(blob, '\n'); i >= 0 {
			line, blob = blob[:i], blob[i+1:]
		} else {
			blob = ""
		}
		line = strings.TrimSuffix(line, "\r")
		if isBlank(line) {
			continue
		}
		entries = append(entries, ParseLine(line, len(entries)))
	}
	return entries
}

// ParseReader is Parse for streamed content. Only read errors are returned.
func ParseReader(r io.Reader) ([]models.LogEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScannerBuffer)

	entries := make([]models.LogEntry, 0, 1024)
	for scanner.Scan() {
		line := scanner.Text()
		if isBlank(line) {
			continue
		}
		entries = append(entries, ParseLine(line, len(entries)))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading log content: %w", err)
	}
	return entries, nil
}

// ParseLine parses a single line. A line that does not match the grammar
// comes back as a garbage entry with the trimmed line as its message.
func ParseLine(line string, index int) models.LogEntry {
	entry := models.LogEntry{Index: index, Raw: line}

	ts, level, rest, ok := splitPrefix(line)
	if !ok {
		entry.Message = strings.TrimSpace(line)
		return entry
	}

	entry.Timestamp = &ts
	entry.Level = level
	entry.Message, entry.Data = splitData(rest)
	return entry
}

// CountEntries returns how many entries Parse would produce for blob.
func CountEntries(blob string) int {
	n := 0
	for len(blob) > 0 {
		line := blob
		if i := strings.IndexByte(blob, '\n'); i >= 0 {
			line, blob = blob[:i], blob[i+1:]
		} else {
			blob = ""
		}
		if !isBlank(line) {
			n++
		}
	}
	return n
}

// splitPrefix matches "[YYYY-MM-DD, HH:MM:SS] [LEVEL]" at the start of line
// and returns the text that follows it.
func splitPrefix(line string) (time.Time, models.Level, string, bool) {
	// "[2025-01-01, 10:00:00] [" is 24 bytes
	const head = 24
	if len(line) < head+2 {
		return time.Time{}, "", "", false
	}
	if line[0] != '[' || line[11] != ',' || line[12] != ' ' || line[21] != ']' ||
		line[22] != ' ' || line[23] != '[' {
		return time.Time{}, "", "", false
	}

	ts, ok := parseTimestamp(line[1:11], line[13:21])
	if !ok {
		return time.Time{}, "", "", false
	}

	end := strings.IndexByte(line[head:], ']')
	if end < 0 {
		return time.Time{}, "", "", false
	}
	level, ok := models.ParseLevel(line[head : head+end])
	if !ok {
		return time.Time{}, "", "", false
	}

	return ts, level, line[head+end+1:], true
}

// splitData separates MESSAGE from a JSON DATA suffix. Each " - " is tried
// left to right; the first one followed by a complete JSON value wins.
// Without one the whole text is the message.
func splitData(rest string) (string, *models.Value) {
	off := 0
	for {
		i := strings.Index(rest[off:], dataSeparator)
		if i < 0 {
			break
		}
		sep := off + i
		suffix := strings.TrimSpace(rest[sep+len(dataSeparator):])
		if mayBeJSON(suffix) {
			if v, err := models.DecodeValue([]byte(suffix)); err == nil {
				return strings.TrimSpace(rest[:sep]), &v
			}
		}
		off = sep + 1
	}
	return strings.TrimSpace(rest), nil
}

// mayBeJSON rejects suffixes that cannot start a JSON value without decoding.
func mayBeJSON(s string) bool {
	if s == "" {
		return false
	}
	switch c := s[0]; {
	case c == '{', c == '[', c == '"', c == '-', c == 't', c == 'f', c == 'n':
		return true
	case c >= '0' && c <= '9':
		return true
	}
	return false
}

// parseTimestamp parses "YYYY-MM-DD" and "HH:MM:SS" without time.Parse.
// Dates that time.Date would normalise (2025-02-30) are rejected.
func parseTimestamp(date, clock string) (time.Time, bool) {
	if date[4] != '-' || date[7] != '-' || clock[2] != ':' || clock[5] != ':' {
		return time.Time{}, false
	}

	year := parseInt4(date[0:4])
	month := parseInt2(date[5:7])
	day := parseInt2(date[8:10])
	hour := parseInt2(clock[0:2])
	min := parseInt2(clock[3:5])
	sec := parseInt2(clock[6:8])

	if year < 0 || month < 1 || month > 12 || day < 1 || day > 31 ||
		hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// parseInt2 parses a 2-digit decimal string. Returns -1 on error.
func parseInt2(s string) int {
	if len(s) != 2 {
		return -1
	}
	d1, d2 := s[0]-'0', s[1]-'0'
	if d1 > 9 || d2 > 9 {
		return -1
	}
	return int(d1)*10 + int(d2)
}

// parseInt4 parses a 4-digit decimal string. Returns -1 on error.
func parseInt4(s string) int {
	if len(s) != 4 {
		return -1
	}
	d1, d2, d3, d4 := s[0]-'0', s[1]-'0', s[2]-'0', s[3]-'0'
	if d1 > 9 || d2 > 9 || d3 > 9 || d4 > 9 {
		return -1
	}
	return int(d1)*1000 + int(d2)*100 + int(d3)*10 + int(d4)
}

func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// FormatLine renders an entry back into the line grammar.
// Garbage entries are returned as their raw text.
func FormatLine(e models.LogEntry) string {
	if e.IsGarbage() || !e.HasTimestamp() {
		return e.Raw
	}
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(e.Timestamp.UTC().Format(TimestampLayout))
	b.WriteString("] [")
	b.WriteString(string(e.Level))
	b.WriteString("] ")
	b.WriteString(e.Message)
	if e.Data != nil {
		b.WriteString(dataSeparator)
		b.WriteString(e.Data.String())
	}
	return b.String()
}
