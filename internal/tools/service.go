// Package tools implements the log tools exposed to agents and the HTTP API:
// argument validation, loading parsed logs through the content cache, and
// running queries.
package tools

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/log-viewer/backend/internal/cache"
	"github.com/log-viewer/backend/internal/logging"
	"github.com/log-viewer/backend/internal/models"
	"github.com/log-viewer/backend/internal/parser"
	"github.com/log-viewer/backend/internal/query"
	"github.com/log-viewer/backend/internal/storage"
)

var logger = logging.New("Tools")

// Limits are the defaults and caps applied to tool arguments.
type Limits struct {
	DefaultLimit     int
	LatestLimit      int
	MaxLimit         int
	MaxContextLines  int
	MaxLogsPerQuery  int
	DefaultVerbosity models.Verbosity
	// Parallelism bounds concurrent fetch+parse of a project's logs.
	Parallelism int
}

// DefaultLimits mirrors the defaults in config.
func DefaultLimits() Limits {
	return Limits{
		DefaultLimit:     100,
		LatestLimit:      20,
		MaxLimit:         1000,
		MaxContextLines:  50,
		MaxLogsPerQuery:  50,
		DefaultVerbosity: models.VerbosityStandard,
		Parallelism:      4,
	}
}

// Service runs tools against a store, parsing logs lazily through a cache.
type Service struct {
	store  storage.Store
	cache  *cache.ContentCache
	limits Limits
}

// NewService creates a tool service.
func NewService(store storage.Store, c *cache.ContentCache, limits Limits) *Service {
	if limits.Parallelism <= 0 {
		limits.Parallelism = 1
	}
	if limits.DefaultVerbosity == "" {
		limits.DefaultVerbosity = models.VerbosityStandard
	}
	return &Service{store: store, cache: c, limits: limits}
}

// Limits returns the limits the service validates against.
func (s *Service) Limits() Limits {
	return s.limits
}

// EntriesQuery runs a filtered, paginated query over one log or a project.
func (s *Service) EntriesQuery(ctx context.Context, args EntriesQueryArgs) (*EntriesResponse, error) {
	params, err := s.queryParams(args)
	if err != nil {
		return nil, err
	}

	logs, err := s.loadScope(ctx, args.ProjectID, args.LogID)
	if err != nil {
		return nil, err
	}

	return entriesResponse(query.QueryLogs(logs, params)), nil
}

// EntriesLatest returns the newest entries, newest first.
func (s *Service) EntriesLatest(ctx context.Context, args EntriesLatestArgs) (*EntriesResponse, error) {
	if args.ProjectID == "" {
		return nil, invalidArg("project_id is required")
	}

	params := models.NewQueryParams()
	params.Latest = true
	params.Verbosity = s.limits.DefaultVerbosity

	var err error
	if params.Level, err = parseLevel(args.Level); err != nil {
		return nil, err
	}
	if args.Verbosity != "" {
		if params.Verbosity, err = parseVerbosity(args.Verbosity); err != nil {
			return nil, err
		}
	}
	if params.Limit, err = s.limit(args.Limit, s.limits.LatestLimit); err != nil {
		return nil, err
	}

	logs, err := s.loadScope(ctx, args.ProjectID, args.LogID)
	if err != nil {
		return nil, err
	}

	return entriesResponse(query.QueryLogs(logs, params)), nil
}

// ProjectsList lists every project.
func (s *Service) ProjectsList(ctx context.Context) (*ProjectsResponse, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return &ProjectsResponse{Success: true, Projects: projects}, nil
}

// LogsList lists a project's logs, newest first.
func (s *Service) LogsList(ctx context.Context, args LogsListArgs) (*LogsResponse, error) {
	if args.ProjectID == "" {
		return nil, invalidArg("project_id is required")
	}
	limit := 0
	if args.Limit != nil {
		if *args.Limit < 0 {
			return nil, invalidArg("limit must not be negative")
		}
		limit = *args.Limit
	}

	logs, err := s.store.ListLogs(ctx, args.ProjectID, limit)
	if err != nil {
		return nil, err
	}
	return &LogsResponse{Success: true, Logs: logs}, nil
}

// LogSummary counts a log's entries per level and reports its time range.
func (s *Service) LogSummary(ctx context.Context, args LogSummaryArgs) (*SummaryResponse, error) {
	if args.LogID == "" {
		return nil, invalidArg("log_id is required")
	}
	if _, err := s.store.GetLog(ctx, args.LogID); err != nil {
		return nil, err
	}

	entries, err := s.LoadLog(ctx, args.LogID)
	if err != nil {
		return nil, err
	}

	summary := parser.Summarize(entries)
	summary.LogID = args.LogID
	return &SummaryResponse{Success: true, Summary: summary, Cache: s.cache.Stats()}, nil
}

// QueryLog runs params against a single log.
func (s *Service) QueryLog(ctx context.Context, logID string, params models.QueryParams) (models.QueryResult, error) {
	entries, err := s.LoadLog(ctx, logID)
	if err != nil {
		return models.QueryResult{}, err
	}
	return query.QueryLogs([]query.LogEntries{{LogID: logID, Entries: entries}}, params), nil
}

// LoadLog returns the parsed entries of a log, from the cache when possible.
func (s *Service) LoadLog(ctx context.Context, logID string) ([]models.LogEntry, error) {
	return cache.Fetch(ctx, s.cache, logID, s.parseLog)
}

// Forget drops a log from the cache, e.g. after it was deleted.
func (s *Service) Forget(logID string) {
	s.cache.Invalidate(logID)
}

// CacheStats reports the content cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *Service) parseLog(ctx context.Context, logID string) ([]models.LogEntry, error) {
	content, err := s.store.GetLogContent(ctx, logID)
	if err != nil {
		return nil, err
	}
	entries := parser.Parse(content)
	logger.Debugf("parsed log %s: %d entries", logID, len(entries))
	return entries, nil
}

// loadScope resolves the logs a query runs over. With a log ID that log must
// belong to the project; without one the project's most recent logs are
// loaded concurrently and returned oldest first.
func (s *Service) loadScope(ctx context.Context, projectID, logID string) ([]query.LogEntries, error) {
	if logID != "" {
		info, err := s.store.GetLog(ctx, logID)
		if err != nil {
			return nil, err
		}
		if info.ProjectID != projectID {
			return nil, notFound("log %s not found in project %s", logID, projectID)
		}
		entries, err := s.LoadLog(ctx, logID)
		if err != nil {
			return nil, err
		}
		return []query.LogEntries{{LogID: logID, Entries: entries}}, nil
	}

	infos, err := s.store.ListLogs(ctx, projectID, s.limits.MaxLogsPerQuery)
	if err != nil {
		return nil, err
	}

	logs := make([]query.LogEntries, len(infos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limits.Parallelism)
	for i, info := range infos {
		// infos is newest first; fill from the back so logs is oldest first.
		slot := len(infos) - 1 - i
		id := info.ID
		g.Go(func() error {
			entries, err := s.LoadLog(gctx, id)
			if err != nil {
				return fmt.Errorf("loading log %s: %w", id, err)
			}
			logs[slot] = query.LogEntries{LogID: id, Entries: entries}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Service) queryParams(args EntriesQueryArgs) (models.QueryParams, error) {
	params := models.NewQueryParams()
	params.Verbosity = s.limits.DefaultVerbosity
	params.SearchQuery = args.SearchQuery

	if args.ProjectID == "" {
		return params, invalidArg("project_id is required")
	}

	var err error
	if params.Level, err = parseLevel(args.Level); err != nil {
		return params, err
	}
	if args.Verbosity != "" {
		if params.Verbosity, err = parseVerbosity(args.Verbosity); err != nil {
			return params, err
		}
	}
	if params.Limit, err = s.limit(args.Limit, s.limits.DefaultLimit); err != nil {
		return params, err
	}

	if args.Offset != nil {
		if *args.Offset < 0 {
			return params, invalidArg("offset must not be negative")
		}
		params.Offset = *args.Offset
	}

	if args.ContextLines != nil {
		n := *args.ContextLines
		if n < 0 {
			return params, invalidArg("context_lines must not be negative")
		}
		if s.limits.MaxContextLines > 0 && n > s.limits.MaxContextLines {
			return params, invalidArg("context_lines must be at most %d", s.limits.MaxContextLines)
		}
		params.ContextLines = n
	}

	if args.Since != nil {
		params.Since = args.Since.UTC()
	}
	if args.Until != nil {
		params.Until = args.Until.UTC()
	}
	if !params.Since.IsZero() && !params.Until.IsZero() && params.Since.After(params.Until) {
		return params, invalidArg("since must not be after until")
	}

	return params, nil
}

func (s *Service) limit(v *int, def int) (int, error) {
	if v == nil {
		return def, nil
	}
	if *v < 0 {
		return 0, invalidArg("limit must not be negative")
	}
	if *v > s.limits.MaxLimit {
		return 0, invalidArg("limit must be at most %d", s.limits.MaxLimit)
	}
	return *v, nil
}

func parseLevel(s string) (models.Level, error) {
	if s == "" {
		return "", nil
	}
	level, ok := models.ParseLevel(s)
	if !ok {
		return "", invalidArg("unknown level %q (want one of %v)", s, models.Levels())
	}
	return level, nil
}

func parseVerbosity(s string) (models.Verbosity, error) {
	v, ok := models.ParseVerbosity(s)
	if !ok {
		return "", invalidArg("unknown verbosity %q (want compact, standard or full)", s)
	}
	return v, nil
}
