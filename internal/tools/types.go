package tools

import (
	"time"

	"github.com/log-viewer/backend/internal/cache"
	"github.com/log-viewer/backend/internal/models"
)

// EntriesQueryArgs is the request of entries_query. Without log_id the query
// spans every log of the project, oldest log first.
type EntriesQueryArgs struct {
	ProjectID    string     `json:"project_id"`
	LogID        string     `json:"log_id,omitempty"`
	SearchQuery  string     `json:"search_query,omitempty"`
	Level        string     `json:"level,omitempty"`
	Verbosity    string     `json:"verbosity,omitempty"`
	Limit        *int       `json:"limit,omitempty"`
	Offset       *int       `json:"offset,omitempty"`
	ContextLines *int       `json:"context_lines,omitempty"`
	Since        *time.Time `json:"since,omitempty"`
	Until        *time.Time `json:"until,omitempty"`
}

// EntriesLatestArgs is the request of entries_latest.
type EntriesLatestArgs struct {
	ProjectID string `json:"project_id"`
	LogID     string `json:"log_id,omitempty"`
	Level     string `json:"level,omitempty"`
	Verbosity string `json:"verbosity,omitempty"`
	Limit     *int   `json:"limit,omitempty"`
}

// LogsListArgs is the request of logs_list.
type LogsListArgs struct {
	ProjectID string `json:"project_id"`
	Limit     *int   `json:"limit,omitempty"`
}

// LogSummaryArgs is the request of log_summary.
type LogSummaryArgs struct {
	LogID string `json:"log_id"`
}

// EntriesResponse is the success shape of entries_query and entries_latest.
type EntriesResponse struct {
	Success      bool                   `json:"success" msgpack:"success"`
	Entries      []models.RenderedEntry `json:"entries" msgpack:"entries"`
	TotalMatches int                    `json:"total_matches" msgpack:"total_matches"`
	Truncated    bool                   `json:"truncated" msgpack:"truncated"`
}

// ProjectsResponse is the success shape of projects_list.
type ProjectsResponse struct {
	Success  bool              `json:"success" msgpack:"success"`
	Projects []*models.Project `json:"projects" msgpack:"projects"`
}

// LogsResponse is the success shape of logs_list.
type LogsResponse struct {
	Success bool              `json:"success" msgpack:"success"`
	Logs    []*models.LogInfo `json:"logs" msgpack:"logs"`
}

// SummaryResponse is the success shape of log_summary.
type SummaryResponse struct {
	Success bool              `json:"success" msgpack:"success"`
	Summary models.LogSummary `json:"summary" msgpack:"summary"`
	Cache   cache.Stats       `json:"cache" msgpack:"cache"`
}

// ErrorResponse is the failure shape shared by every tool.
type ErrorResponse struct {
	Success bool   `json:"success" msgpack:"success"`
	Error   string `json:"error" msgpack:"error"`
	Code    string `json:"code,omitempty" msgpack:"code,omitempty"`
}

// Failure converts err into the wire failure shape.
func Failure(err error) ErrorResponse {
	te := asError(err)
	return ErrorResponse{Success: false, Error: te.Message, Code: te.Code}
}

func entriesResponse(r models.QueryResult) *EntriesResponse {
	return &EntriesResponse{
		Success:      true,
		Entries:      r.Entries,
		TotalMatches: r.TotalMatches,
		Truncated:    r.Truncated,
	}
}
