// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/log-viewer/backend/internal/models"
)

// ProjectHandler handles project operations
type ProjectHandler interface {
	HandleCreateProject(c echo.Context) error
	HandleListProjects(c echo.Context) error
	HandleGetProject(c echo.Context) error
	HandleDeleteProject(c echo.Context) error
}

// LogHandler handles log ingestion and metadata
type LogHandler interface {
	HandleIngestLog(c echo.Context) error
	HandleListLogs(c echo.Context) error
	HandleGetLog(c echo.Context) error
	HandleGetLogContent(c echo.Context) error
	HandleDeleteLog(c echo.Context) error
	HandleLogSummary(c echo.Context) error
}

// EntriesHandler handles parsed entry queries
type EntriesHandler interface {
	HandleEntries(c echo.Context) error
	HandleEntriesMsgpack(c echo.Context) error
}

// ToolHandler exposes the tool registry over HTTP
type ToolHandler interface {
	HandleListTools(c echo.Context) error
	HandleCallTool(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// FeedHandler serves the per-project websocket feed
type FeedHandler interface {
	HandleProjectFeed(c echo.Context) error
}

// IngestNotifier is told about every stored log.
type IngestNotifier interface {
	LogIngested(ctx context.Context, info *models.LogInfo)
}
