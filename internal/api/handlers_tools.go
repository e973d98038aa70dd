// handlers_tools.go - Tool registry over HTTP
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/log-viewer/backend/internal/tools"
)

// ToolHandlerImpl implements the ToolHandler interface
type ToolHandlerImpl struct {
	registry *tools.Registry
}

// NewToolHandler creates a new tool handler
func NewToolHandler(registry *tools.Registry) ToolHandler {
	return &ToolHandlerImpl{registry: registry}
}

// HandleListTools lists the registered tools
func (h *ToolHandlerImpl) HandleListTools(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.Tools())
}

// HandleCallTool runs a tool with the JSON request body as its arguments.
// Tool failures are answered with 200 and {success:false, error} so agents
// see the same shape whatever the transport; only transport problems are
// HTTP errors.
func (h *ToolHandlerImpl) HandleCallTool(c echo.Context) error {
	name := c.Param("name")

	raw, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return NewBadRequestError("failed to read request body", err)
	}

	var res interface{}
	res, err = h.registry.Call(c.Request().Context(), name, json.RawMessage(raw))
	if err != nil {
		logger.Debugf("tool %s failed: %v", name, err)
		res = tools.Failure(err)
	}

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "application/msgpack") {
		data, err := encodeMsgpack(res)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, "application/msgpack", data)
	}
	return c.JSON(http.StatusOK, res)
}
