package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/log-viewer/backend/internal/models"
	"github.com/log-viewer/backend/internal/parser"
	"github.com/log-viewer/backend/internal/query"
)

// queryFlags are the filters shared by query and watch.
type queryFlags struct {
	search string
	level  string
	offset int
	since  string
	until  string
}

func addQueryFlags(cmd *cobra.Command, f *queryFlags) {
	flags := cmd.Flags()
	flags.StringVarP(&f.search, "search", "s", "", "case-insensitive text to look for in messages (and data unless compact)")
	flags.StringVarP(&f.level, "level", "l", "", "only entries of this level: LOG, ERROR, INFO, WARN, DEBUG")
	flags.IntVar(&f.offset, "offset", 0, "skip this many matches")
	flags.StringVar(&f.since, "since", "", "only entries at or after this time")
	flags.StringVar(&f.until, "until", "", "only entries at or before this time")
	flags.IntP("limit", "n", 100, "print at most this many matches (-1 for all)")
	flags.IntP("context", "C", 0, "lines of context around each match")
	configFlag(flags, "limit", "limit")
	configFlag(flags, "context", "context")
}

func newParseCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE...",
		Short: "Summarize log files: entries per level and time range",
		Example: `  logq parse app.log
  logq parse "logs/**/*.log" -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logs, err := a.load(cmd, args)
			if err != nil {
				return err
			}

			sums := make([]models.LogSummary, 0, len(logs))
			for _, l := range logs {
				s := parser.Summarize(l.Entries)
				s.LogID = l.LogID
				sums = append(sums, s)
			}
			return writeSummaries(cmd.OutOrStdout(), a.settings.Output, sums)
		},
	}
}

func newQueryCommand(a *app) *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "query [flags] FILE|GLOB...",
		Short: "Search log files",
		Long: `Search one or more log files. Files are queried as one stream in argument
order; use - to read standard input.`,
		Example: `  logq query app.log --level ERROR
  logq query "logs/**/*.log" -s timeout -C 2
  logq query app.log --since "2025-01-01, 10:00:00" -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := a.queryParams(f)
			if err != nil {
				return err
			}
			paths, err := expandPatterns(args)
			if err != nil {
				return err
			}
			return a.printQuery(cmd, paths, params)
		},
	}
	addQueryFlags(cmd, &f)
	return cmd
}

func newLatestCommand(a *app) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "latest [flags] FILE...",
		Short: "Print the newest entries, newest first",
		Example: `  logq latest app.log
  logq latest app.log -n 50 --level ERROR`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := models.NewQueryParams()
			params.Latest = true
			params.Verbosity, _ = models.ParseVerbosity(a.settings.Verbosity)
			params.Limit = limitParam(a.settings.LatestLimit)

			var err error
			if params.Level, err = parseLevel(level); err != nil {
				return err
			}
			paths, err := expandPatterns(args)
			if err != nil {
				return err
			}
			return a.printQuery(cmd, paths, params)
		},
	}
	cmd.Flags().StringVarP(&level, "level", "l", "", "only entries of this level")
	cmd.Flags().IntP("limit", "n", 20, "print at most this many entries (-1 for all)")
	configFlag(cmd.Flags(), "limit", "latest-limit")
	return cmd
}

func (a *app) load(cmd *cobra.Command, args []string) ([]query.LogEntries, error) {
	paths, err := expandPatterns(args)
	if err != nil {
		return nil, err
	}
	return loadLogs(paths, cmd.InOrStdin())
}

func (a *app) printQuery(cmd *cobra.Command, paths []string, params models.QueryParams) error {
	logs, err := loadLogs(paths, cmd.InOrStdin())
	if err != nil {
		return err
	}
	res := query.QueryLogs(logs, params)
	return writeEntries(cmd.OutOrStdout(), a.settings.Output, res, len(logs) > 1)
}

func (a *app) queryParams(f queryFlags) (models.QueryParams, error) {
	params := models.NewQueryParams()
	params.SearchQuery = f.search
	params.Verbosity, _ = models.ParseVerbosity(a.settings.Verbosity)
	params.Limit = limitParam(a.settings.Limit)

	var err error
	if params.Level, err = parseLevel(f.level); err != nil {
		return params, err
	}
	if f.offset < 0 {
		return params, fmt.Errorf("--offset must not be negative")
	}
	params.Offset = f.offset
	if a.settings.Context < 0 {
		return params, fmt.Errorf("--context must not be negative")
	}
	params.ContextLines = a.settings.Context

	if f.since != "" {
		if params.Since, err = parseTime(f.since); err != nil {
			return params, err
		}
	}
	if f.until != "" {
		if params.Until, err = parseTime(f.until); err != nil {
			return params, err
		}
	}
	if !params.Since.IsZero() && !params.Until.IsZero() && params.Since.After(params.Until) {
		return params, fmt.Errorf("--since must not be after --until")
	}
	return params, nil
}

// parseLevel accepts level names in any case.
func parseLevel(s string) (models.Level, error) {
	if s == "" {
		return "", nil
	}
	level, ok := models.ParseLevel(strings.ToUpper(s))
	if !ok {
		return "", fmt.Errorf("unknown level %q (want one of %v)", s, models.Levels())
	}
	return level, nil
}

func limitParam(n int) int {
	if n < 0 {
		return models.NoLimit
	}
	return n
}
