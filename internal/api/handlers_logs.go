// handlers_logs.go - Log ingestion and metadata handlers
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/log-viewer/backend/internal/storage"
	"github.com/log-viewer/backend/internal/tools"
)

// LogHandlerImpl implements the LogHandler interface
type LogHandlerImpl struct {
	store         storage.Store
	service       *tools.Service
	notifier      IngestNotifier
	allowDeletion bool
}

// NewLogHandler creates a new log handler. notifier may be nil.
func NewLogHandler(store storage.Store, service *tools.Service, notifier IngestNotifier, allowDeletion bool) LogHandler {
	return &LogHandlerImpl{
		store:         store,
		service:       service,
		notifier:      notifier,
		allowDeletion: allowDeletion,
	}
}

// ingestLogRequest is the JSON form of an ingest. Raw text bodies carry the
// name in the query string instead.
type ingestLogRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (r *ingestLogRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return NewValidationError("name")
	}
	return nil
}

// HandleIngestLog stores a raw log blob verbatim. Parsing happens at query time.
func (h *LogHandlerImpl) HandleIngestLog(c echo.Context) error {
	projectID := c.Param("id")
	req := c.Request()

	// Gzip bodies arrive already inflated and size-limited by the middleware.
	data, err := io.ReadAll(req.Body)
	if err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return NewBadRequestError("failed to read request body", err)
	}

	in := ingestLogRequest{Name: c.QueryParam("name")}
	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(data, &in); err != nil {
			return NewBadRequestError("invalid request body", err)
		}
		data = []byte(in.Content)
	}
	if err := in.validate(); err != nil {
		return err
	}

	info, err := h.store.SaveLog(req.Context(), projectID, in.Name, bytes.NewReader(data))
	if err != nil {
		return storeError(err, "project", projectID)
	}

	logger.Infof("ingested log %s (%s, %d bytes, %d entries) into project %s",
		info.ID, info.Name, info.Size, info.LineCount, projectID)

	if h.notifier != nil {
		h.notifier.LogIngested(req.Context(), info)
	}
	return c.JSON(http.StatusCreated, info)
}

// HandleListLogs lists a project's logs, newest first
func (h *LogHandlerImpl) HandleListLogs(c echo.Context) error {
	projectID := c.Param("id")

	limit, err := intParam(c, "limit")
	if err != nil {
		return err
	}
	if limit != nil && *limit < 0 {
		return NewValidationError("limit")
	}

	args := tools.LogsListArgs{ProjectID: projectID, Limit: limit}
	res, err := h.service.LogsList(c.Request().Context(), args)
	if err != nil {
		return toolError(err)
	}
	return c.JSON(http.StatusOK, res.Logs)
}

// HandleGetLog returns a log's metadata
func (h *LogHandlerImpl) HandleGetLog(c echo.Context) error {
	id := c.Param("id")
	info, err := h.store.GetLog(c.Request().Context(), id)
	if err != nil {
		return storeError(err, "log", id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleGetLogContent returns the raw blob as it was ingested
func (h *LogHandlerImpl) HandleGetLogContent(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	info, err := h.store.GetLog(ctx, id)
	if err != nil {
		return storeError(err, "log", id)
	}
	content, err := h.store.GetLogContent(ctx, id)
	if err != nil {
		return storeError(err, "log", id)
	}

	if c.QueryParam("download") == "true" {
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+info.Name+`"`)
	}
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, []byte(content))
}

// HandleDeleteLog deletes a log and drops its parsed entries from the cache
func (h *LogHandlerImpl) HandleDeleteLog(c echo.Context) error {
	if !h.allowDeletion {
		return NewForbiddenError("deletion is disabled")
	}

	id := c.Param("id")
	if err := h.store.DeleteLog(c.Request().Context(), id); err != nil {
		return storeError(err, "log", id)
	}
	h.service.Forget(id)

	logger.Infof("deleted log %s", id)
	return c.NoContent(http.StatusNoContent)
}

// HandleLogSummary returns per-level counts and the time range of a log
func (h *LogHandlerImpl) HandleLogSummary(c echo.Context) error {
	res, err := h.service.LogSummary(c.Request().Context(), tools.LogSummaryArgs{LogID: c.Param("id")})
	if err != nil {
		return toolError(err)
	}
	return c.JSON(http.StatusOK, res)
}
