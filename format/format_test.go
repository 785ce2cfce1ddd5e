package format

import (
	"testing"

	"github.com/auditmos/actionkit/action"
	"github.com/auditmos/actionkit/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var username = New(Stringify(), Trim(), Lower(), MinLength(3), MaxLength(16), Match(`^[a-z0-9_]+$`))

func extract(t *testing.T, f *Format, v any) (any, *event.Buffer, error) {
	t.Helper()
	buf := event.NewBuffer(event.MaskAll)
	out, err := f.Extract(v, buf, nil)
	return out, buf, err
}

func TestFormat_RunsRulesInOrder(t *testing.T) {
	out, buf, err := extract(t, username, "  Alice_01 ")
	require.NoError(t, err)
	assert.Equal(t, "alice_01", out)
	assert.Zero(t, buf.Len())
}

func TestFormat_FirstFailingTestStops(t *testing.T) {
	out, buf, err := extract(t, username, "a!")

	assert.True(t, action.IsFailure(err))
	assert.Nil(t, out)
	require.Len(t, buf.Errors(), 1)
	assert.Equal(t, CodeTooShort, buf.Errors()[0].Code)
}

func TestFormat_LogsAtPath(t *testing.T) {
	buf := event.NewBuffer(event.MaskAll)
	_, err := username.Extract(42.5, buf, event.Path{"form", "user"})
	require.Error(t, err)

	e, ok := buf.LastError()
	require.True(t, ok)
	assert.Equal(t, event.Path{"form", "user"}, e.Path)
}

func TestFormat_FailureReferencesLog(t *testing.T) {
	buf := event.NewBuffer(event.MaskAll)
	_, err := username.Apply([]int{1}, buf)

	var failure *action.Failure
	require.ErrorAs(t, err, &failure)
	assert.Same(t, buf, failure.Log)
	assert.Equal(t, CodeType, buf.Errors()[0].Code)
}

func TestFormat_Idempotent(t *testing.T) {
	formats := map[string]*Format{
		"username": username,
		"int":      New(Integer(), Min(0)),
		"number":   New(Number()),
		"bool":     New(Boolean()),
		"text":     New(Stringify(), Normalize(), CollapseSpace(), Fold()),
		"record":   Record(Field{Name: "age", Format: New(Integer())}, Field{Name: "name", Format: username}),
		"list":     List(New(Stringify(), Trim())),
	}
	inputs := []any{" Bob ", "17", 17, 17.0, "true", true, "Straße  Ｆoo ", "é",
		map[string]any{"age": "30", "name": " Zed_1", "extra": 1}, []any{" a", 2, true}}

	for name, f := range formats {
		for _, in := range inputs {
			first, _, err := extract(t, f, in)
			if err != nil {
				continue
			}
			second, buf, err := extract(t, f, first)
			require.NoError(t, err, "%s %v", name, in)
			assert.Equal(t, first, second, "%s %v", name, in)
			assert.False(t, buf.HasErrors())
		}
	}
}

func TestFormat_Deterministic(t *testing.T) {
	for _, in := range []any{"x", "  valid_name ", nil, 3} {
		out1, buf1, err1 := extract(t, username, in)
		out2, buf2, err2 := extract(t, username, in)
		assert.Equal(t, out1, out2)
		assert.Equal(t, err1 == nil, err2 == nil)
		assert.Equal(t, buf1.All(), buf2.All())
	}
}

func TestFormat_CloneIsIndependent(t *testing.T) {
	base := New(Stringify())
	trimmed := base.With(Trim())
	upper := base.With(Upper())

	out, _, err := extract(t, trimmed, " a ")
	require.NoError(t, err)
	assert.Equal(t, "a", out)

	out, _, err = extract(t, upper, " a ")
	require.NoError(t, err)
	assert.Equal(t, " A ", out)

	out, _, err = extract(t, base, " a ")
	require.NoError(t, err)
	assert.Equal(t, " a ", out)
}

func TestFormat_MessageOverride(t *testing.T) {
	f := username.Message("pick another name")
	_, buf, err := extract(t, f, "!")

	require.Error(t, err)
	assert.Equal(t, []event.Event{event.Error("pick another name")}, buf.All())

	out, _, err := extract(t, f, "valid")
	require.NoError(t, err)
	assert.Equal(t, "valid", out)
}

func TestFormat_MaskedErrorsStillFail(t *testing.T) {
	buf := event.NewBuffer(event.MaskOf(event.TypeInfo))
	out, err := username.Extract("!", buf, nil)
	assert.True(t, action.IsFailure(err))
	assert.Nil(t, out)
	assert.Zero(t, buf.Len())
}

func TestFormat_Capabilities(t *testing.T) {
	assert.True(t, New().Capabilities().Has(action.Idempotent|action.Deterministic|action.NoEffect))
	assert.False(t, NewTransform().Capabilities().Has(action.Idempotent))
	assert.False(t, Compose(New(), action.Func(func(any, event.Log) (any, error) { return nil, nil })).Capabilities().Has(action.NoEffect))
}

func TestFormat_FastApplyEquivalence(t *testing.T) {
	formats := []*Format{
		username,
		Union(New(Integer()), New(Boolean())),
		Compose(New(Stringify()), New(Trim(), NotEmpty())),
		Record(Field{Name: "n", Format: New(Integer())}),
	}
	inputs := []any{"ok_name", "  ", 5, "yes", nil, map[string]any{"n": "x"}, map[string]any{"n": "4"}}

	for i, f := range formats {
		for _, in := range inputs {
			buf := event.NewBuffer(event.MaskAll)
			want, applyErr := f.Extract(in, buf, event.Path{"in"})

			var got any = "stale"
			var events []event.Event
			ok, err := f.FastApply(in, &got, event.MaskAll, &events, event.Path{"in"})
			require.NoError(t, err)

			assert.Equal(t, applyErr == nil, ok, "format %d input %v", i, in)
			assert.Equal(t, want, got, "format %d input %v", i, in)
			assert.Equal(t, buf.All(), events, "format %d input %v", i, in)
		}
	}
}

func TestFormat_PipelinedBeforeAction(t *testing.T) {
	greet := action.Func(func(input any, log event.Log) (any, error) {
		return "hello " + input.(string), nil
	})
	p := action.NewPipeline(username, greet)

	out, _, err := action.Run(p, " BOB ", event.MaskAll)
	require.NoError(t, err)
	assert.Equal(t, "hello bob", out)

	_, buf, err := action.Run(p, 7, event.MaskAll)
	assert.True(t, action.IsFailure(err))
	assert.True(t, buf.HasErrors())
}
