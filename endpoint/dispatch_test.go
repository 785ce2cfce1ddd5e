package endpoint

import (
	"errors"
	"testing"
	"time"

	"github.com/auditmos/actionkit/action"
	"github.com/auditmos/actionkit/event"
	"github.com/auditmos/actionkit/format"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls  int
	inputs []any
	result any
}

func (r *recorder) Apply(input any, log event.Log) (any, error) {
	r.calls++
	r.inputs = append(r.inputs, input)
	return r.result, nil
}

type lookupUser struct{}

func (lookupUser) Apply(input any, log event.Log) (any, error) {
	params, _ := input.(map[string]any)
	if params["id"] != 5 {
		return nil, action.Fail(log, event.Error("no such user").At("id").WithCode("not_found"))
	}
	if err := log.Log(event.Success("found")); err != nil {
		return nil, err
	}
	return map[string]any{"id": 5, "name": "ann"}, nil
}

func (lookupUser) ParamFormat() action.Action {
	return format.Record(format.Field{Name: "id", Format: format.New(format.Required(), format.Integer())})
}

type observed struct {
	chain   string
	outcome string
}

type recordingObserver struct {
	seen []observed
}

func (o *recordingObserver) ObserveDispatch(chain Chain, outcome string, elapsed time.Duration) {
	o.seen = append(o.seen, observed{chain: chain.String(), outcome: outcome})
}

func tree() (*Table, *recorder) {
	list := &recorder{result: []string{"ann", "bo"}}
	users := NewTable().
		Leaf("get", lookupUser{}).
		Leaf("list", list)
	root := NewTable().
		Branch("users", users).
		Leaf("open", action.Func(func(input any, log event.Log) (any, error) { return users, nil })).
		Leaf("count", action.Func(func(input any, log event.Log) (any, error) { return 2, nil }))
	return root, list
}

func dispatch(t *testing.T, d *Dispatcher, chain Chain) (any, *event.Buffer, error) {
	t.Helper()
	buf := event.NewBuffer(event.MaskAll)
	out, err := d.Dispatch(chain, buf)
	return out, buf, err
}

func failure(t *testing.T, err error) *Failure {
	t.Helper()
	var f *Failure
	require.ErrorAs(t, err, &f)
	return f
}

func TestDispatch_LeafParams(t *testing.T) {
	root, _ := tree()
	d := NewDispatcher(root)

	out, buf, err := dispatch(t, d, Chain{Seg("users"), SegWith("get", map[string]any{"id": 5})})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 5, "name": "ann"}, out)
	assert.Equal(t, []event.Event{event.Success("found").At("users", "get")}, buf.All())
}

func TestDispatch_ParamFormatCoerces(t *testing.T) {
	root, _ := tree()
	d := NewDispatcher(root)

	out, _, err := dispatch(t, d, ParseChain("users.get").WithLeafParams(map[string]string{"id": "5"}))
	require.NoError(t, err)
	assert.Equal(t, "ann", out.(map[string]any)["name"])
}

func TestDispatch_ParamFormatFailureAbortsChain(t *testing.T) {
	root, _ := tree()
	d := NewDispatcher(root)

	_, buf, err := dispatch(t, d, ParseChain("users.get").WithLeafParams(map[string]any{"id": "x"}))
	assert.True(t, action.IsFailure(err))

	var af *action.Failure
	require.ErrorAs(t, err, &af)
	assert.Same(t, buf, af.Log)

	errs := buf.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, event.Path{"users", "get", "id"}, errs[0].Path)
	assert.Equal(t, format.CodeType, errs[0].Code)
}

func TestDispatch_ActionFailureReboundToCallerLog(t *testing.T) {
	root, _ := tree()
	d := NewDispatcher(root)

	_, buf, err := dispatch(t, d, Chain{Seg("users"), SegWith("get", map[string]any{"id": 7})})

	var af *action.Failure
	require.ErrorAs(t, err, &af)
	assert.Same(t, buf, af.Log)
	e, ok := buf.LastError()
	require.True(t, ok)
	assert.Equal(t, event.Path{"users", "get", "id"}, e.Path)
	assert.Equal(t, "not_found", e.Code)
}

func TestDispatch_Failures(t *testing.T) {
	tests := []struct {
		name  string
		chain Chain
		code  string
		index int
	}{
		{"empty chain", nil, CodeSegmentNotFound, -1},
		{"unknown root segment", ParseChain("nope"), CodeSegmentNotFound, 0},
		{"unknown nested segment", ParseChain("users.delete"), CodeSegmentNotFound, 1},
		{"branch terminates chain", ParseChain("users"), CodeActionExpected, 0},
		{"params on a branch", Chain{SegWith("users", map[string]any{}), Seg("list")}, CodeActionExpected, 0},
		{"endpoint as final result", ParseChain("open"), CodeDataResultExpected, 0},
		{"data mid-chain", ParseChain("count.get"), CodeEndpointResultExpected, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, _ := tree()
			out, buf, err := dispatch(t, NewDispatcher(root), tt.chain)
			assert.Nil(t, out)

			f := failure(t, err)
			assert.Equal(t, tt.code, f.Code)
			assert.Equal(t, tt.index, f.Index)
			assert.True(t, action.IsFailure(err))

			errs := buf.Errors()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
			if tt.index >= 0 {
				assert.Equal(t, tt.chain[tt.index].Name, f.Segment)
				assert.Len(t, errs[0].Path, tt.index+1)
			} else {
				assert.Empty(t, errs[0].Path)
			}
		})
	}
}

func TestDispatch_ActionReturningEndpoint(t *testing.T) {
	root, list := tree()
	out, _, err := dispatch(t, NewDispatcher(root), ParseChain("open.list"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ann", "bo"}, out)
	assert.Equal(t, []any{nil}, list.inputs)
}

func TestDispatch_ParamFilter(t *testing.T) {
	root, list := tree()
	filter := format.New(format.Default(map[string]any{}))
	d := NewDispatcher(root, WithParamFilter(filter))

	_, _, err := dispatch(t, d, ParseChain("users.list"))
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{}}, list.inputs)

	reject := action.Func(func(input any, log event.Log) (any, error) {
		return nil, action.Fail(log, event.Error("params rejected"))
	})
	d = NewDispatcher(root, WithParamFilter(reject))
	_, buf, err := dispatch(t, d, ParseChain("users.list"))
	assert.True(t, action.IsFailure(err))
	assert.Equal(t, 1, list.calls)
	assert.Equal(t, event.Path{"users", "list"}, buf.Errors()[0].Path)
}

func TestDispatch_ProgrammerErrorsPropagate(t *testing.T) {
	boom := errors.New("db down")
	broken := NewTable().Leaf("x", action.Func(func(any, event.Log) (any, error) { return nil, boom }))
	_, buf, err := dispatch(t, NewDispatcher(broken), ParseChain("x"))
	assert.ErrorIs(t, err, boom)
	assert.False(t, action.IsFailure(err))
	assert.Zero(t, buf.Len())

	both := Func(func(string) Resolution {
		return Resolution{Endpoint: NewTable(), Action: &recorder{}}
	})
	_, _, err = dispatch(t, NewDispatcher(both), ParseChain("x"))
	require.Error(t, err)
	assert.False(t, action.IsFailure(err))
}

func TestDispatch_MaskedLogStillFails(t *testing.T) {
	root, _ := tree()
	buf := event.NewBuffer(event.MaskNone)
	_, err := NewDispatcher(root).Dispatch(ParseChain("users"), buf)
	assert.Equal(t, CodeActionExpected, failure(t, err).Code)
	assert.Zero(t, buf.Len())
}

func TestDispatch_Observer(t *testing.T) {
	root, _ := tree()
	obs := &recordingObserver{}
	d := NewDispatcher(root, WithObserver(obs))

	_, _, _ = dispatch(t, d, ParseChain("users.list"))
	_, _, _ = dispatch(t, d, ParseChain("users"))
	_, _, _ = dispatch(t, d, Chain{Seg("users"), SegWith("get", map[string]any{"id": 1})})

	assert.Equal(t, []observed{
		{"users.list", OutcomeOK},
		{"users", CodeActionExpected},
		{"users.get", OutcomeActionFailed},
	}, obs.seen)
}

func TestFailure_Error(t *testing.T) {
	assert.Equal(t, "dispatch: segment_not_found", (&Failure{Code: CodeSegmentNotFound, Index: -1}).Error())
	assert.Equal(t, `dispatch: action_expected at segment 0 ("users")`,
		(&Failure{Code: CodeActionExpected, Index: 0, Segment: "users"}).Error())
}
