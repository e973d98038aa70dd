package parser

import "github.com/log-viewer/backend/internal/models"

// Summarize counts entries per level and tracks the covered time range.
func Summarize(entries []models.LogEntry) models.LogSummary {
	summary := models.LogSummary{
		Entries: len(entries),
		Levels:  make(map[models.Level]int, len(models.Levels())),
	}

	for i := range entries {
		e := &entries[i]
		if e.IsGarbage() {
			summary.Garbage++
			continue
		}
		summary.Levels[e.Level]++

		if !e.HasTimestamp() {
			continue
		}
		if summary.TimeRange == nil {
			summary.TimeRange = &models.TimeRange{Start: *e.Timestamp, End: *e.Timestamp}
			continue
		}
		if e.Timestamp.Before(summary.TimeRange.Start) {
			summary.TimeRange.Start = *e.Timestamp
		}
		if e.Timestamp.After(summary.TimeRange.End) {
			summary.TimeRange.End = *e.Timestamp
		}
	}

	return summary
}
