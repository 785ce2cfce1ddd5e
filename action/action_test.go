package action

import (
	"errors"
	"testing"

	"github.com/auditmos/actionkit/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// halve succeeds on even ints and fails otherwise. It has no native fast form.
var halve = Func(func(input any, log event.Log) (any, error) {
	n, ok := input.(int)
	if !ok {
		return nil, Fail(log, event.Error("not an int").WithCode("type"))
	}
	if n%2 != 0 {
		return nil, Fail(log, event.Warning("odd input"), event.Errorf("%d is odd", n).WithCode("odd"))
	}
	if err := log.Log(event.Info("halved")); err != nil {
		return nil, err
	}
	return n / 2, nil
})

// fastHalve is halve with a native fast form.
type fastHalve struct{}

func (fastHalve) Apply(input any, log event.Log) (any, error) {
	return halve.Apply(input, log)
}

func (fastHalve) FastApply(input any, out *any, mask event.Mask, events *[]event.Event, path event.Path) (bool, error) {
	n, ok := input.(int)
	if !ok {
		*out = nil
		return false, Emit(events, mask, path, event.Error("not an int").WithCode("type"))
	}
	if n%2 != 0 {
		*out = nil
		return false, Emit(events, mask, path, event.Warning("odd input"), event.Errorf("%d is odd", n).WithCode("odd"))
	}
	*out = n / 2
	return true, Emit(events, mask, path, event.Info("halved"))
}

var boom = errors.New("boom")

func TestFail_AddsEmptyError(t *testing.T) {
	buf := event.NewBuffer(event.MaskAll)

	err := Fail(buf, event.Warning("only a warning"))

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Same(t, buf, failure.Log)
	require.Equal(t, 2, buf.Len())
	assert.Equal(t, event.Event{Type: event.TypeError}, buf.All()[1])
}

func TestFailure_ErrorMessage(t *testing.T) {
	buf := event.NewBuffer(event.MaskAll)
	err := Fail(event.WithPath(buf, "f"), event.Error("bad"))
	assert.Equal(t, "action failed: error at f: bad", err.Error())
	assert.Equal(t, "action failed", (&Failure{Log: event.Discard}).Error())
}

func TestRebind(t *testing.T) {
	outer := event.NewBuffer(event.MaskAll)
	inner := event.WithPath(outer, "x")

	err := Rebind(Fail(inner, event.Error("e")), outer)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Same(t, outer, failure.Log)
	assert.Same(t, boom, Rebind(boom, outer))
	assert.Nil(t, Rebind(nil, outer))
}

func TestRun(t *testing.T) {
	out, buf, err := Run(halve, 8, event.MaskAll)
	require.NoError(t, err)
	assert.Equal(t, 4, out)
	assert.Equal(t, 1, buf.Len())
}

func TestFastApply_Emulated(t *testing.T) {
	var out any = "stale"
	var events []event.Event

	ok, err := FastApply(halve, 7, &out, event.MaskAll, &events, event.Path{"n"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, out)
	require.Len(t, events, 2)
	assert.Equal(t, event.TypeWarning, events[0].Type)
	assert.Equal(t, event.Path{"n"}, events[1].Path)
	assert.Equal(t, "odd", events[1].Code)
}

func TestFastApply_EmulatedAddsErrorWhenMissing(t *testing.T) {
	silent := Func(func(input any, log event.Log) (any, error) {
		return nil, &Failure{Log: log}
	})
	var out any
	var events []event.Event

	ok, err := FastApply(silent, nil, &out, event.MaskOf(event.TypeError), &events, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []event.Event{{Type: event.TypeError}}, events)
}

func TestFastApply_EmulatedTxFailure(t *testing.T) {
	batch := Func(func(input any, log event.Log) (any, error) {
		tx := event.NewTxLog(event.MaskAll, log)
		tx.Begin()
		_ = tx.Log(event.Error("a"), event.Error("b"))
		return nil, tx.Commit()
	})
	var out any
	var events []event.Event

	ok, err := FastApply(batch, nil, &out, event.MaskAll, &events, nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, events, 2)
}

func TestFastApply_EnvironmentErrorPropagates(t *testing.T) {
	broken := Func(func(input any, log event.Log) (any, error) {
		return nil, boom
	})
	var out any
	var events []event.Event

	ok, err := FastApply(broken, nil, &out, event.MaskAll, &events, nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, events)
}

func TestFastApply_AppendsOnly(t *testing.T) {
	existing := []event.Event{event.Info("earlier")}
	var out any

	ok, err := FastApply(halve, 4, &out, event.MaskAll, &existing, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, out)
	assert.Equal(t, []event.Event{event.Info("earlier"), event.Info("halved")}, existing)
}

// Both forms must agree on every input: Apply failing exactly when FastApply
// reports false, the same output, and the same events.
func TestFastApply_EquivalentToApply(t *testing.T) {
	inputs := []any{0, 2, 3, 10, -4, "x", nil, 2.5}
	masks := []event.Mask{event.MaskAll, event.MaskOf(event.TypeError), event.MaskOf(event.TypeInfo), event.MaskNone}
	impls := map[string]Action{"emulated": halve, "native": fastHalve{}}

	for name, impl := range impls {
		for _, mask := range masks {
			for _, input := range inputs {
				buf := event.NewBuffer(mask)
				want, applyErr := impl.Apply(input, event.WithPath(buf, "p"))

				var got any
				var events []event.Event
				ok, err := FastApply(impl, input, &got, mask, &events, event.Path{"p"})
				require.NoError(t, err)

				assert.Equal(t, applyErr == nil, ok, "%s %v %v", name, mask, input)
				assert.Equal(t, want, got, "%s %v %v", name, mask, input)
				if ok {
					assert.Equal(t, buf.All(), events, "%s %v %v", name, mask, input)
				} else if mask.Has(event.TypeError) {
					assert.NotEmpty(t, event.Filter(events, event.MaskOf(event.TypeError)))
				}
			}
		}
	}
}

func TestFast(t *testing.T) {
	native := fastHalve{}
	assert.Equal(t, FastAction(native), Fast(native))

	wrapped := Fast(halve)
	var out any
	var events []event.Event
	ok, err := wrapped.FastApply(6, &out, event.MaskAll, &events, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, out)
}
