package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/log-viewer/backend/internal/config"
	"github.com/log-viewer/backend/internal/models"
	"github.com/log-viewer/backend/internal/tools"
	"github.com/stretchr/testify/assert"
)

func newTestServer(t *testing.T, cfg *config.AppConfig) *echo.Echo {
	t.Helper()
	svc, store := newTestService(t)

	e := echo.New()
	SetupMiddleware(e, cfg)
	handlers := NewHandlers(&Dependencies{
		Store:         store,
		Service:       svc,
		Registry:      tools.NewRegistry(svc),
		Version:       "test",
		AllowDeletion: cfg.Security.AllowDeletion,
	})
	RegisterRoutes(e, handlers)
	RegisterWebSocketRoutes(e, handlers)
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Advanced.EnableRequestLogging = false
	e := newTestServer(t, cfg)

	tests := []struct {
		method     string
		target     string
		body       string
		wantStatus int
	}{
		{http.MethodGet, "/api/health", "", http.StatusOK},
		{http.MethodGet, "/api/projects", "", http.StatusOK},
		{http.MethodPost, "/api/projects", `{"name":"fresh"}`, http.StatusCreated},
		{http.MethodGet, "/api/projects/p1", "", http.StatusOK},
		{http.MethodGet, "/api/projects/p1/logs", "", http.StatusOK},
		{http.MethodGet, "/api/logs/log-1", "", http.StatusOK},
		{http.MethodGet, "/api/logs/log-1/content", "", http.StatusOK},
		{http.MethodGet, "/api/logs/log-1/entries?level=ERROR", "", http.StatusOK},
		{http.MethodGet, "/api/logs/log-1/entries/msgpack", "", http.StatusOK},
		{http.MethodGet, "/api/logs/log-1/summary", "", http.StatusOK},
		{http.MethodGet, "/api/tools", "", http.StatusOK},
		{http.MethodPost, "/api/tools/projects_list", "", http.StatusOK},
		{http.MethodGet, "/api/logs/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/nowhere", "", http.StatusNotFound},
		{http.MethodDelete, "/api/logs/log-1", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			}
			rec := serve(e, req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestRoutesDeletionDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Advanced.EnableRequestLogging = false
	cfg.Security.AllowDeletion = false
	e := newTestServer(t, cfg)

	rec := serve(e, httptest.NewRequest(http.MethodDelete, "/api/projects/p1", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FORBIDDEN"`)
}

func TestSetupMiddleware(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Advanced.EnableRequestLogging = false
	cfg.Server.BodyLimit = "1K"
	e := newTestServer(t, cfg)

	t.Run("gzip responses", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/logs/log-1/content", nil)
		req.Header.Set(echo.HeaderAcceptEncoding, "gzip")
		rec := serve(e, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "gzip", rec.Header().Get(echo.HeaderContentEncoding))
	})

	t.Run("body limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/projects/p1/logs?name=big.log",
			strings.NewReader(strings.Repeat("x", 4096)))
		req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
		rec := serve(e, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	gzipIngest := func(body []byte) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/projects/p1/logs?name=zipped.log", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
		req.Header.Set(echo.HeaderContentEncoding, "gzip")
		return req
	}

	t.Run("gzip request body", func(t *testing.T) {
		rec := serve(e, gzipIngest(gzipBytes(t, sampleLog)))
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var info models.LogInfo
		decodeJSON(t, rec.Body, &info)
		assert.Equal(t, "zipped.log", info.Name)
		assert.Equal(t, int64(len(sampleLog)), info.Size)
	})

	t.Run("body limit counts inflated bytes", func(t *testing.T) {
		body := gzipBytes(t, strings.Repeat("a", 64*1024))
		assert.Less(t, len(body), 1024)

		rec := serve(e, gzipIngest(body))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("body that is not gzip", func(t *testing.T) {
		rec := serve(e, gzipIngest([]byte("not gzip at all")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"BAD_REQUEST"`)
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
		req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
		rec := serve(e, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	})

	t.Run("json errors", func(t *testing.T) {
		rec := serve(e, httptest.NewRequest(http.MethodGet, "/api/projects/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"code":"NOT_FOUND"`)
	})
}
