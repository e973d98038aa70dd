// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"compress/gzip"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/log-viewer/backend/internal/config"
	"github.com/log-viewer/backend/internal/logging"
	"github.com/log-viewer/backend/internal/storage"
	"github.com/log-viewer/backend/internal/tools"
)

var logger = logging.New("API")

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store    storage.Store
	Service  *tools.Service
	Registry *tools.Registry
	Hub      *FeedHub
	Version  string
	// AllowDeletion enables the DELETE routes.
	AllowDeletion bool
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Projects ProjectHandler
	Logs     LogHandler
	Entries  EntriesHandler
	Tools    ToolHandler
	Feed     FeedHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	h := &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.Store, deps.Service),
		Projects: NewProjectHandler(deps.Store, deps.Service, deps.AllowDeletion),
		Entries:  NewEntriesHandler(deps.Store, deps.Service),
		Tools:    NewToolHandler(deps.Registry),
	}

	if deps.Hub != nil {
		h.Logs = NewLogHandler(deps.Store, deps.Service, deps.Hub, deps.AllowDeletion)
		h.Feed = deps.Hub
	} else {
		h.Logs = NewLogHandler(deps.Store, deps.Service, nil, deps.AllowDeletion)
	}
	return h
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Projects
	apiGroup.POST("/projects", handlers.Projects.HandleCreateProject)
	apiGroup.GET("/projects", handlers.Projects.HandleListProjects)
	apiGroup.GET("/projects/:id", handlers.Projects.HandleGetProject)
	apiGroup.DELETE("/projects/:id", handlers.Projects.HandleDeleteProject)

	// Logs
	apiGroup.POST("/projects/:id/logs", handlers.Logs.HandleIngestLog)
	apiGroup.GET("/projects/:id/logs", handlers.Logs.HandleListLogs)
	apiGroup.GET("/logs/:id", handlers.Logs.HandleGetLog)
	apiGroup.GET("/logs/:id/content", handlers.Logs.HandleGetLogContent)
	apiGroup.DELETE("/logs/:id", handlers.Logs.HandleDeleteLog)
	apiGroup.GET("/logs/:id/summary", handlers.Logs.HandleLogSummary)

	// Entries
	apiGroup.GET("/logs/:id/entries", handlers.Entries.HandleEntries)
	apiGroup.GET("/logs/:id/entries/msgpack", handlers.Entries.HandleEntriesMsgpack)

	// Tools
	apiGroup.GET("/tools", handlers.Tools.HandleListTools)
	apiGroup.POST("/tools/:name", handlers.Tools.HandleCallTool)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	if handlers.Feed == nil {
		return
	}
	e.GET("/api/ws/projects/:id", handlers.Feed.HandleProjectFeed)
}

// SetupMiddleware configures the error handler and the middleware chain
func SetupMiddleware(e *echo.Echo, cfg *config.AppConfig) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !cfg.Advanced.EnableRequestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" || isWebSocket(c)
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return isWebSocket(c) ||
				strings.HasSuffix(path, "/logs") && c.Request().Method == http.MethodPost
		},
		ErrorMessage: "Request timeout - query took too long",
	}))

	if cfg.Processing.EnableCompression {
		e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
			Level:   cfg.Processing.CompressionLevel,
			Skipper: isWebSocket,
		}))
	}

	// Inflate before BodyLimit so the limit counts decompressed bytes.
	e.Use(decompressBody())
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	if cfg.Server.EnableCORS {
		origins := strings.Split(cfg.Server.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderContentEncoding, echo.HeaderAccept},
		}))
	}
}

// decompressBody wraps echo's Decompress middleware and reports a body that
// is not gzip at all as a bad request instead of an internal error.
func decompressBody() echo.MiddlewareFunc {
	decompress := middleware.DecompressWithConfig(middleware.DecompressConfig{
		Skipper: isWebSocket,
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := decompress(next)
		return func(c echo.Context) error {
			err := h(c)
			if errors.Is(err, gzip.ErrHeader) {
				return NewBadRequestError("invalid gzip body", err)
			}
			return err
		}
	}
}

func isWebSocket(c echo.Context) bool {
	return strings.EqualFold(c.Request().Header.Get(echo.HeaderUpgrade), "websocket")
}
