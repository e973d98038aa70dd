// handlers_projects.go - Project CRUD handlers
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/log-viewer/backend/internal/storage"
	"github.com/log-viewer/backend/internal/tools"
)

// ProjectHandlerImpl implements the ProjectHandler interface
type ProjectHandlerImpl struct {
	store         storage.Store
	service       *tools.Service
	allowDeletion bool
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(store storage.Store, service *tools.Service, allowDeletion bool) ProjectHandler {
	return &ProjectHandlerImpl{
		store:         store,
		service:       service,
		allowDeletion: allowDeletion,
	}
}

type createProjectRequest struct {
	Name string `json:"name"`
}

func (r *createProjectRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return NewValidationError("name")
	}
	return nil
}

// HandleCreateProject creates a project with a unique name
func (h *ProjectHandlerImpl) HandleCreateProject(c echo.Context) error {
	var req createProjectRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	project, err := h.store.CreateProject(c.Request().Context(), req.Name)
	if err != nil {
		return storeError(err, "project", req.Name)
	}

	logger.Infof("created project %s (%s)", project.ID, project.Name)
	return c.JSON(http.StatusCreated, project)
}

// HandleListProjects lists all projects
func (h *ProjectHandlerImpl) HandleListProjects(c echo.Context) error {
	projects, err := h.store.ListProjects(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to list projects", err)
	}
	return c.JSON(http.StatusOK, projects)
}

// HandleGetProject returns one project
func (h *ProjectHandlerImpl) HandleGetProject(c echo.Context) error {
	id := c.Param("id")
	project, err := h.store.GetProject(c.Request().Context(), id)
	if err != nil {
		return storeError(err, "project", id)
	}
	return c.JSON(http.StatusOK, project)
}

// HandleDeleteProject deletes a project and all of its logs
func (h *ProjectHandlerImpl) HandleDeleteProject(c echo.Context) error {
	if !h.allowDeletion {
		return NewForbiddenError("deletion is disabled")
	}

	ctx := c.Request().Context()
	id := c.Param("id")

	logs, err := h.store.ListLogs(ctx, id, 0)
	if err != nil {
		return storeError(err, "project", id)
	}
	if err := h.store.DeleteProject(ctx, id); err != nil {
		return storeError(err, "project", id)
	}
	for _, l := range logs {
		h.service.Forget(l.ID)
	}

	logger.Infof("deleted project %s with %d logs", id, len(logs))
	return c.NoContent(http.StatusNoContent)
}
