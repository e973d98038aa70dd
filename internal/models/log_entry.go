// Package models contains domain types for the log viewer backend.
package models

import "time"

// Level is the severity bracket of a log line.
// The empty Level stands for an unparseable (garbage) line.
type Level string

const (
	LevelLog   Level = "LOG"
	LevelError Level = "ERROR"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelDebug Level = "DEBUG"
)

var levels = []Level{LevelLog, LevelError, LevelInfo, LevelWarn, LevelDebug}

// Levels returns the fixed set of recognised levels.
func Levels() []Level {
	out := make([]Level, len(levels))
	copy(out, levels)
	return out
}

// ParseLevel matches s case-sensitively against the level set.
func ParseLevel(s string) (Level, bool) {
	for _, l := range levels {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// LogEntry is one parsed line of a log blob.
type LogEntry struct {
	Index     int       `json:"index"`
	Timestamp *time.Time `json:"timestamp"` // nil when the line did not match
	Level     Level     `json:"level"`     // empty when the line did not match
	Message   string    `json:"message"`
	Data      *Value    `json:"data,omitempty"`
	Raw       string    `json:"raw"`
}

// IsGarbage reports whether the source line failed the log line grammar.
func (e *LogEntry) IsGarbage() bool {
	return e.Level == ""
}

// HasTimestamp reports whether the entry carries a parsed timestamp.
func (e *LogEntry) HasTimestamp() bool {
	return e.Timestamp != nil
}

// TimeRange represents a time window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// LogSummary aggregates per-level counts for one log.
type LogSummary struct {
	LogID     string        `json:"log_id,omitempty"`
	Entries   int           `json:"entries"`
	Garbage   int           `json:"garbage"`
	Levels    map[Level]int `json:"levels"`
	TimeRange *TimeRange    `json:"time_range,omitempty"`
}
