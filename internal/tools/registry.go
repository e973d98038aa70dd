package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
)

// Tool names.
const (
	EntriesQuery  = "entries_query"
	EntriesLatest = "entries_latest"
	ProjectsList  = "projects_list"
	LogsList      = "logs_list"
	LogSummary    = "log_summary"
)

// Handler runs one tool with raw JSON arguments.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool describes a registered tool.
type Tool struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params"`
	handler     Handler
}

// Registry maps tool names to handlers.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry registers the log tools of s.
func NewRegistry(s *Service) *Registry {
	r := &Registry{tools: make(map[string]Tool)}

	r.Register(Tool{
		Name:        EntriesQuery,
		Description: "Search a log or a whole project with level, text and time filters, context lines and pagination.",
		Params:      []string{"project_id", "log_id?", "search_query?", "level?", "verbosity?", "limit?", "offset?", "context_lines?", "since?", "until?"},
	}, typed(s.EntriesQuery))

	r.Register(Tool{
		Name:        EntriesLatest,
		Description: "Return the newest entries of a log or project, newest first.",
		Params:      []string{"project_id", "log_id?", "level?", "verbosity?", "limit?"},
	}, typed(s.EntriesLatest))

	r.Register(Tool{
		Name:        ProjectsList,
		Description: "List all projects.",
	}, func(ctx context.Context, _ json.RawMessage) (any, error) {
		return s.ProjectsList(ctx)
	})

	r.Register(Tool{
		Name:        LogsList,
		Description: "List the logs uploaded to a project, newest first.",
		Params:      []string{"project_id", "limit?"},
	}, typed(s.LogsList))

	r.Register(Tool{
		Name:        LogSummary,
		Description: "Count a log's entries per level and report the time range it covers.",
		Params:      []string{"log_id"},
	}, typed(s.LogSummary))

	return r
}

// Register adds or replaces a tool.
func (r *Registry) Register(t Tool, h Handler) {
	t.handler = h
	r.tools[t.Name] = t
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the registered tools, sorted by name.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, r.tools[name])
	}
	return out
}

// Call runs the named tool. Failures are *Error values.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, &Error{Code: CodeUnknownTool, Message: "unknown tool " + name}
	}
	res, err := t.handler(ctx, args)
	if err != nil {
		return nil, asError(err)
	}
	return res, nil
}

// typed adapts a method taking decoded arguments into a Handler.
func typed[A any, R any](fn func(context.Context, A) (R, error)) Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args A
		if err := decodeArgs(raw, &args); err != nil {
			return nil, err
		}
		return fn(ctx, args)
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return invalidArg("invalid arguments: %v", err)
	}
	return nil
}
