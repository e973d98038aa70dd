// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/log-viewer/backend/internal/storage"
	"github.com/log-viewer/backend/internal/tools"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	store   storage.Store
	service *tools.Service
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, store storage.Store, service *tools.Service) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		store:   store,
		service: service,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	if _, err := h.store.ListProjects(c.Request().Context()); err != nil {
		logger.Errorf("health check: %v", err)
		return NewServiceUnavailableError("storage unavailable")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"cache":   h.service.CacheStats(),
	})
}
