package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestType_String(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{TypeError, "error"},
		{TypeWarning, "warning"},
		{TypeInfo, "info"},
		{TypeSuccess, "success"},
		{Type(64), "type(64)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.typ.String())
	}
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("WARNING")
	require.NoError(t, err)
	assert.Equal(t, TypeWarning, typ)

	_, err = ParseType("fatal")
	assert.Error(t, err)
}

func TestMask_Has(t *testing.T) {
	m := MaskOf(TypeError, TypeInfo)
	assert.True(t, m.Has(TypeError))
	assert.True(t, m.Has(TypeInfo))
	assert.False(t, m.Has(TypeWarning))
	assert.False(t, m.Has(TypeSuccess))
	assert.True(t, MaskAll.Covers(m))
	assert.False(t, m.Covers(MaskAll))
}

func TestParseMask(t *testing.T) {
	tests := []struct {
		input string
		want  Mask
	}{
		{"all", MaskAll},
		{"none", MaskNone},
		{"", MaskNone},
		{"error", MaskOf(TypeError)},
		{"error|warning", MaskOf(TypeError, TypeWarning)},
		{"info, success", MaskOf(TypeInfo, TypeSuccess)},
	}

	for _, tt := range tests {
		got, err := ParseMask(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}

	_, err := ParseMask("error|bogus")
	assert.Error(t, err)
}

func TestMask_String(t *testing.T) {
	assert.Equal(t, "none", MaskNone.String())
	assert.Equal(t, "error|warning|info|success", MaskAll.String())
}

func TestEvent_Builders(t *testing.T) {
	e := Error("bad").WithCode("invalid").At("user", 2).WithDetail("max", 3)

	assert.Equal(t, TypeError, e.Type)
	assert.Equal(t, "invalid", e.Code)
	assert.Equal(t, Path{"user", 2}, e.Path)
	assert.Equal(t, 3, e.Details["max"])
	assert.Equal(t, "error at user.2 [invalid]: bad", e.String())
}

func TestEvent_WithDetailCopies(t *testing.T) {
	base := Info("x").WithDetail("a", 1)
	derived := base.WithDetail("b", 2)

	assert.Len(t, base.Details, 1)
	assert.Len(t, derived.Details, 2)
}

func TestEvent_JSON(t *testing.T) {
	e := Warning("slow").At("items", 0, "name").WithCode("latency")

	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"warning","path":["items",0,"name"],"message":"slow","code":"latency"}`, string(data))

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, e, back)
}

func TestEvent_JSONInvalidType(t *testing.T) {
	_, err := json.Marshal(Event{Type: Type(32)})
	assert.Error(t, err)
}

func TestPath_Parse(t *testing.T) {
	assert.Nil(t, ParsePath(""))
	assert.Equal(t, Path{"a", "b", 0}, ParsePath("a.b.0"))
	assert.Equal(t, Path{"a", "01"}, ParsePath("a.01"))
	assert.Equal(t, "a.b.0", ParsePath("a.b.0").String())
}

func TestPath_JoinDoesNotAlias(t *testing.T) {
	base := make(Path, 1, 4)
	base[0] = "root"

	a := base.Append("a")
	b := base.Append("b")

	assert.Equal(t, Path{"root", "a"}, a)
	assert.Equal(t, Path{"root", "b"}, b)
}

func TestPath_HasPrefix(t *testing.T) {
	p := NewPath("items", 3, "name")
	assert.True(t, p.HasPrefix(Path{"items", "3"}))
	assert.True(t, p.HasPrefix(nil))
	assert.False(t, p.HasPrefix(Path{"items", 4}))
	assert.False(t, Path{"items"}.HasPrefix(p))
}

func TestNewPath_NormalizesInts(t *testing.T) {
	p := NewPath(int64(2), uint8(1), 3.0, "x")
	assert.Equal(t, Path{2, 1, 3, "x"}, p)
}
