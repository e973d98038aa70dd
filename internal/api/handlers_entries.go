// handlers_entries.go - Parsed entry query handlers
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/log-viewer/backend/internal/storage"
	"github.com/log-viewer/backend/internal/tools"
	"github.com/vmihailenco/msgpack/v5"
)

// EntriesHandlerImpl implements the EntriesHandler interface
type EntriesHandlerImpl struct {
	store   storage.Store
	service *tools.Service
}

// NewEntriesHandler creates a new entries handler
func NewEntriesHandler(store storage.Store, service *tools.Service) EntriesHandler {
	return &EntriesHandlerImpl{
		store:   store,
		service: service,
	}
}

// HandleEntries queries a log's parsed entries.
//
// Query parameters: q (or search_query), level, verbosity, limit, offset,
// context (or context_lines), since, until (RFC 3339) and latest=true, which
// returns the newest entries first and ignores the search, offset, context and
// time parameters.
func (h *EntriesHandlerImpl) HandleEntries(c echo.Context) error {
	res, err := h.query(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

// HandleEntriesMsgpack is HandleEntries encoded as MessagePack
func (h *EntriesHandlerImpl) HandleEntriesMsgpack(c echo.Context) error {
	res, err := h.query(c)
	if err != nil {
		return err
	}

	data, err := encodeMsgpack(res)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *EntriesHandlerImpl) query(c echo.Context) (*tools.EntriesResponse, error) {
	ctx := c.Request().Context()
	id := c.Param("id")

	info, err := h.store.GetLog(ctx, id)
	if err != nil {
		return nil, storeError(err, "log", id)
	}

	limit, err := intParam(c, "limit")
	if err != nil {
		return nil, err
	}

	if c.QueryParam("latest") == "true" {
		res, err := h.service.EntriesLatest(ctx, tools.EntriesLatestArgs{
			ProjectID: info.ProjectID,
			LogID:     id,
			Level:     c.QueryParam("level"),
			Verbosity: c.QueryParam("verbosity"),
			Limit:     limit,
		})
		if err != nil {
			return nil, toolError(err)
		}
		return res, nil
	}

	args := tools.EntriesQueryArgs{
		ProjectID:   info.ProjectID,
		LogID:       id,
		SearchQuery: firstParam(c, "q", "search_query"),
		Level:       c.QueryParam("level"),
		Verbosity:   c.QueryParam("verbosity"),
		Limit:       limit,
	}
	if args.Offset, err = intParam(c, "offset"); err != nil {
		return nil, err
	}
	if args.ContextLines, err = intParam(c, "context", "context_lines"); err != nil {
		return nil, err
	}
	if args.Since, err = timeParam(c, "since"); err != nil {
		return nil, err
	}
	if args.Until, err = timeParam(c, "until"); err != nil {
		return nil, err
	}

	res, err := h.service.EntriesQuery(ctx, args)
	if err != nil {
		return nil, toolError(err)
	}
	return res, nil
}

// firstParam returns the first non-empty query parameter among names.
func firstParam(c echo.Context, names ...string) string {
	for _, name := range names {
		if v := c.QueryParam(name); v != "" {
			return v
		}
	}
	return ""
}

// intParam parses an optional integer query parameter. nil means absent.
func intParam(c echo.Context, names ...string) (*int, error) {
	raw := firstParam(c, names...)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, NewValidationError(names[0])
	}
	return &v, nil
}

func timeParam(c echo.Context, name string) (*time.Time, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, NewValidationError(name)
	}
	return &t, nil
}

func init() {
	msgpack.Register(json.Number(""), encodeJSONNumber, nil)
}

// encodeJSONNumber writes data tree numbers as native msgpack ints or floats.
// Literals that fit neither stay strings.
func encodeJSONNumber(enc *msgpack.Encoder, v reflect.Value) error {
	n := json.Number(v.String())
	if i, err := n.Int64(); err == nil {
		return enc.EncodeInt(i)
	}
	if f, err := n.Float64(); err == nil {
		return enc.EncodeFloat64(f)
	}
	return enc.EncodeString(string(n))
}

// encodeMsgpack encodes v, falling back to json tags for field names.
func encodeMsgpack(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
