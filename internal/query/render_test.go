package query

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/log-viewer/backend/internal/models"
	"github.com/log-viewer/backend/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCompact(t *testing.T) {
	long := strings.Repeat("é", CompactMessageLimit+5)
	e := parser.ParseLine("[2025-01-01, 10:00:00] [WARN] "+long+` - {"a":1}`, 3)

	r := Render(&e, models.VerbosityCompact, false)
	assert.Equal(t, 3, r.Index)
	require.NotNil(t, r.Level)
	assert.Equal(t, models.LevelWarn, *r.Level)
	require.NotNil(t, r.Timestamp)
	assert.True(t, r.MessageTruncated)
	assert.Equal(t, strings.Repeat("é", CompactMessageLimit)+"…", r.Message)
	assert.Empty(t, r.DataPreview)
	assert.Nil(t, r.Data)
	assert.Empty(t, r.Raw)

	short := parser.ParseLine("[2025-01-01, 10:00:00] [WARN] fine", 0)
	r = Render(&short, models.VerbosityCompact, false)
	assert.False(t, r.MessageTruncated)
	assert.Equal(t, "fine", r.Message)
}

func TestRenderStandardPreview(t *testing.T) {
	payload := `{"blob":"` + strings.Repeat("x", 200) + `"}`
	e := parser.ParseLine("[2025-01-01, 10:00:00] [INFO] big - "+payload, 0)

	r := Render(&e, models.VerbosityStandard, true)
	assert.Equal(t, "big", r.Message)
	assert.Equal(t, payload[:DataPreviewLimit]+"…", r.DataPreview)
	assert.Nil(t, r.Data)
	assert.False(t, r.Context)
	assert.Empty(t, r.Raw)
}

func TestRenderGarbageHasNullFields(t *testing.T) {
	e := parser.ParseLine("   panic: nil map", 0)

	for _, v := range []models.Verbosity{models.VerbosityCompact, models.VerbosityStandard, models.VerbosityFull} {
		r := Render(&e, v, false)
		assert.Nil(t, r.Level)
		assert.Nil(t, r.Timestamp)
		assert.Equal(t, "panic: nil map", r.Message)
	}

	b, err := json.Marshal(Render(&e, models.VerbosityStandard, false))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"level":null`)
	assert.Contains(t, string(b), `"timestamp":null`)
}

func TestRenderFull(t *testing.T) {
	line := `[2025-01-01, 10:00:00] [ERROR] failed - {"user":{"name":"Alexander the Great","admin":true},"ids":[1,2],"note":null}`
	e := parser.ParseLine(line, 0)

	r := Render(&e, models.VerbosityFull, true)
	assert.Equal(t, line, r.Raw)
	assert.True(t, r.Context)
	assert.Empty(t, r.DataPreview)
	require.NotNil(t, r.Data)

	root := r.Data
	assert.Equal(t, "object", root.Kind)
	assert.Equal(t, "Object{3}", root.Preview)
	assert.Equal(t, 3, root.Length)
	require.Len(t, root.Children, 3)

	user := root.Children[0]
	assert.Equal(t, "user", user.Key)
	assert.Equal(t, "Object{2}", user.Preview)
	require.Len(t, user.Children, 2)
	assert.Equal(t, `"Alexander …"`, user.Children[0].Preview)
	assert.Equal(t, "Alexander the Great", user.Children[0].Value)
	assert.Equal(t, "true", user.Children[1].Preview)
	assert.Equal(t, true, user.Children[1].Value)

	ids := root.Children[1]
	assert.Equal(t, "Array(2)", ids.Preview)
	require.Len(t, ids.Children, 2)
	assert.Equal(t, "0", ids.Children[0].Key)
	assert.Equal(t, json.Number("1"), ids.Children[0].Value)
	assert.Equal(t, "1", ids.Children[0].Preview)

	note := root.Children[2]
	assert.Equal(t, "null", note.Kind)
	assert.Equal(t, "null", note.Preview)
	assert.Nil(t, note.Value)
}

func TestRenderDataShortStringIsNotCut(t *testing.T) {
	n := RenderData(models.NewString("short"))
	assert.Equal(t, `"short"`, n.Preview)
	assert.Equal(t, "short", n.Value)
	assert.Empty(t, n.Children)
}

func TestRenderDataEmptyContainers(t *testing.T) {
	arr := RenderData(models.NewArray())
	assert.Equal(t, "Array(0)", arr.Preview)
	assert.Nil(t, arr.Children)

	obj := RenderData(models.NewObject())
	assert.Equal(t, "Object{0}", obj.Preview)
	assert.Nil(t, obj.Children)
}

func TestTruncate(t *testing.T) {
	s, cut := truncate("abc", 3)
	assert.Equal(t, "abc", s)
	assert.False(t, cut)

	s, cut = truncate("abcd", 3)
	assert.Equal(t, "abc…", s)
	assert.True(t, cut)

	s, cut = truncate("日本語テキスト", 2)
	assert.Equal(t, "日本…", s)
	assert.True(t, cut)
}
