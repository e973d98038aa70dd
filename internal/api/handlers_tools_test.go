package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/log-viewer/backend/internal/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func newToolHandler(t *testing.T) ToolHandler {
	t.Helper()
	svc, _ := newTestService(t)
	return NewToolHandler(tools.NewRegistry(svc))
}

func TestToolHandler_HandleListTools(t *testing.T) {
	h := newToolHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
	c, rec := newContext(req, nil)

	if assert.NoError(t, h.HandleListTools(c)) {
		var list []map[string]interface{}
		decodeJSON(t, rec.Body, &list)
		require.Len(t, list, 5)
		assert.Equal(t, tools.EntriesLatest, list[0]["name"])
		assert.NotEmpty(t, list[0]["description"])
	}
}

func TestToolHandler_HandleCallTool(t *testing.T) {
	tests := []struct {
		name        string
		tool        string
		body        string
		wantSuccess bool
		wantCode    string
	}{
		{
			name:        "entries_query",
			tool:        tools.EntriesQuery,
			body:        `{"project_id":"p1","level":"ERROR"}`,
			wantSuccess: true,
		},
		{
			name:        "projects_list without body",
			tool:        tools.ProjectsList,
			wantSuccess: true,
		},
		{
			name:     "validation failure",
			tool:     tools.EntriesQuery,
			body:     `{"project_id":"p1","limit":-1}`,
			wantCode: tools.CodeInvalidArgument,
		},
		{
			name:     "unknown project",
			tool:     tools.EntriesLatest,
			body:     `{"project_id":"nope"}`,
			wantCode: tools.CodeNotFound,
		},
		{
			name:     "unknown tool",
			tool:     "entries_purge",
			body:     `{}`,
			wantCode: tools.CodeUnknownTool,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newToolHandler(t)

			req := httptest.NewRequest(http.MethodPost, "/api/tools/"+tt.tool, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			c, rec := newContext(req, map[string]string{"name": tt.tool})

			require.NoError(t, h.HandleCallTool(c))
			assert.Equal(t, http.StatusOK, rec.Code)

			var body map[string]interface{}
			decodeJSON(t, rec.Body, &body)
			assert.Equal(t, tt.wantSuccess, body["success"])
			if !tt.wantSuccess {
				assert.Equal(t, tt.wantCode, body["code"])
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestToolHandler_HandleCallToolMsgpack(t *testing.T) {
	h := newToolHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/tools/entries_latest",
		strings.NewReader(`{"project_id":"p1","limit":1,"verbosity":"compact"}`))
	req.Header.Set("Accept", "application/msgpack")
	c, rec := newContext(req, map[string]string{"name": tools.EntriesLatest})

	require.NoError(t, h.HandleCallTool(c))
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	var res tools.EntriesResponse
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "tick", res.Entries[0].Message)
	assert.True(t, res.Truncated)
}
