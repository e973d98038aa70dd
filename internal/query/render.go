package query

import (
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/log-viewer/backend/internal/models"
)

// Truncation limits, in runes.
const (
	CompactMessageLimit = 200
	DataPreviewLimit    = 120
	StringPreviewLimit  = 10
)

const ellipsis = "…"

// Render projects an entry for the given verbosity. isContext marks an entry
// that was selected only as a neighbour of a match; the flag is emitted in
// full verbosity.
func Render(e *models.LogEntry, verbosity models.Verbosity, isContext bool) models.RenderedEntry {
	out := models.RenderedEntry{
		Index:   e.Index,
		Message: e.Message,
	}
	if e.HasTimestamp() {
		ts := *e.Timestamp
		out.Timestamp = &ts
	}
	if !e.IsGarbage() {
		level := e.Level
		out.Level = &level
	}

	switch verbosity {
	case models.VerbosityCompact:
		out.Message, out.MessageTruncated = truncate(e.Message, CompactMessageLimit)

	case models.VerbosityFull:
		out.Raw = e.Raw
		out.Context = isContext
		if e.Data != nil {
			node := RenderData(*e.Data)
			out.Data = &node
		}

	default:
		if e.Data != nil {
			out.DataPreview, _ = truncate(e.Data.String(), DataPreviewLimit)
		}
	}

	return out
}

// RenderData expands a payload into a tree of preview nodes.
func RenderData(v models.Value) models.DataNode {
	return renderNode("", v)
}

func renderNode(key string, v models.Value) models.DataNode {
	node := models.DataNode{Kind: v.Kind().String(), Key: key}

	switch v.Kind() {
	case models.KindNull:
		node.Preview = "null"

	case models.KindBool:
		node.Value = v.AsBool()
		node.Preview = strconv.FormatBool(v.AsBool())

	case models.KindNumber:
		node.Value = v.AsNumber()
		node.Preview = v.AsNumber().String()

	case models.KindString:
		s, _ := truncate(v.AsString(), StringPreviewLimit)
		node.Value = v.AsString()
		node.Preview = `"` + s + `"`

	case models.KindArray:
		items := v.Items()
		node.Preview = fmt.Sprintf("Array(%d)", len(items))
		node.Length = len(items)
		if len(items) > 0 {
			node.Children = make([]models.DataNode, len(items))
			for i, item := range items {
				node.Children[i] = renderNode(strconv.Itoa(i), item)
			}
		}

	case models.KindObject:
		members := v.Members()
		node.Preview = fmt.Sprintf("Object{%d}", len(members))
		node.Length = len(members)
		if len(members) > 0 {
			node.Children = make([]models.DataNode, len(members))
			for i, m := range members {
				node.Children[i] = renderNode(m.Key, m.Value)
			}
		}
	}

	return node
}

// truncate cuts s to limit runes and appends an ellipsis when it was longer.
func truncate(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + ellipsis, true
		}
		n++
	}
	return s, false
}
