package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/olekukonko/tablewriter"

	"github.com/log-viewer/backend/internal/models"
	"github.com/log-viewer/backend/internal/parser"
)

// Output formats.
const (
	formatTable = "table"
	formatText  = "text"
	formatJSON  = "json"
)

var (
	styleDebug   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Faint(true)
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleLog     = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleContext = lipgloss.NewStyle().Faint(true)
	styleSource  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Faint(true)
)

// writeEntries prints a query result. showLog adds the log each entry came
// from, for results spanning several files.
func writeEntries(w io.Writer, format string, res models.QueryResult, showLog bool) error {
	switch format {
	case formatJSON:
		return writeJSON(w, res)
	case formatText:
		for _, e := range res.Entries {
			if _, err := fmt.Fprintln(w, textLine(e, showLog)); err != nil {
				return err
			}
		}
	default:
		table := tablewriter.NewWriter(w)
		header := []any{"#", "Time", "Level", "Message", "Data"}
		if showLog {
			header = append([]any{"Log"}, header...)
		}
		table.Header(header...)
		for _, e := range res.Entries {
			row := []string{indexCell(e), timeCell(e), levelCell(e), e.Message, dataCell(e)}
			if showLog {
				row = append([]string{e.LogID}, row...)
			}
			if err := table.Append(row); err != nil {
				return err
			}
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	footer := fmt.Sprintf("%d of %d matches", len(res.Entries), res.TotalMatches)
	if res.Truncated {
		footer += " (truncated)"
	}
	_, err := fmt.Fprintln(w, footer)
	return err
}

// writeSummaries prints one summary per log.
func writeSummaries(w io.Writer, format string, sums []models.LogSummary) error {
	if format == formatJSON {
		return writeJSON(w, sums)
	}

	if format == formatText {
		for _, s := range sums {
			line := fmt.Sprintf("%s: %d entries, %d garbage", styleSource.Render(s.LogID), s.Entries, s.Garbage)
			for _, l := range models.Levels() {
				if n := s.Levels[l]; n > 0 {
					line += fmt.Sprintf(", %s=%d", levelStyle(l).Render(string(l)), n)
				}
			}
			if s.TimeRange != nil {
				line += fmt.Sprintf(", %s .. %s", formatTime(s.TimeRange.Start), formatTime(s.TimeRange.End))
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		return nil
	}

	table := tablewriter.NewWriter(w)
	header := []any{"Log", "Entries", "Garbage"}
	for _, l := range models.Levels() {
		header = append(header, string(l))
	}
	header = append(header, "From", "To")
	table.Header(header...)

	for _, s := range sums {
		row := []string{s.LogID, strconv.Itoa(s.Entries), strconv.Itoa(s.Garbage)}
		for _, l := range models.Levels() {
			row = append(row, strconv.Itoa(s.Levels[l]))
		}
		from, to := "", ""
		if s.TimeRange != nil {
			from, to = formatTime(s.TimeRange.Start), formatTime(s.TimeRange.End)
		}
		row = append(row, from, to)
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func textLine(e models.RenderedEntry, showLog bool) string {
	var b strings.Builder
	if showLog {
		b.WriteString(styleSource.Render(e.LogID))
		b.WriteByte(' ')
	}
	if e.Timestamp != nil {
		b.WriteString(formatTime(*e.Timestamp))
		b.WriteByte(' ')
	}
	if e.Level != nil {
		b.WriteString(levelStyle(*e.Level).Render(fmt.Sprintf("%-5s", *e.Level)))
		b.WriteByte(' ')
	}
	b.WriteString(e.Message)
	if d := dataCell(e); d != "" {
		b.WriteString(" - ")
		b.WriteString(d)
	}
	if e.Context {
		return styleContext.Render(b.String())
	}
	return b.String()
}

func levelStyle(l models.Level) lipgloss.Style {
	switch l {
	case models.LevelDebug:
		return styleDebug
	case models.LevelWarn:
		return styleWarn
	case models.LevelError:
		return styleError
	case models.LevelLog:
		return styleLog
	default:
		return styleInfo
	}
}

// indexCell shows context lines in parentheses.
func indexCell(e models.RenderedEntry) string {
	if e.Context {
		return "(" + strconv.Itoa(e.Index) + ")"
	}
	return strconv.Itoa(e.Index)
}

func timeCell(e models.RenderedEntry) string {
	if e.Timestamp == nil {
		return ""
	}
	return formatTime(*e.Timestamp)
}

func levelCell(e models.RenderedEntry) string {
	if e.Level == nil {
		return "-"
	}
	return string(*e.Level)
}

func dataCell(e models.RenderedEntry) string {
	if e.DataPreview != "" {
		return e.DataPreview
	}
	if e.Data != nil {
		return e.Data.Preview
	}
	return ""
}

func formatTime(t time.Time) string {
	return t.UTC().Format(parser.TimestampLayout)
}
