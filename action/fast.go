package action

import (
	"errors"

	"github.com/auditmos/actionkit/event"
)

// FastApply calls the native fast form of a when it has one and emulates it
// otherwise.
func FastApply(a Action, input any, out *any, mask event.Mask, events *[]event.Event, path event.Path) (bool, error) {
	if fa, ok := a.(FastAction); ok {
		return fa.FastApply(input, out, mask, events, path)
	}
	return Emulate(a, input, out, mask, events, path)
}

// Emulate runs the standard form of a against an internal buffer and
// translates the outcome into the fast form.
func Emulate(a Action, input any, out *any, mask event.Mask, events *[]event.Event, path event.Path) (bool, error) {
	buf := event.NewBuffer(mask)
	result, err := a.Apply(input, buf)
	if err != nil {
		*out = nil
		var txFailure *event.Failure
		switch {
		case errors.As(err, &txFailure):
			if err := buf.Log(txFailure.Errors...); err != nil {
				return false, err
			}
		case !IsFailure(err):
			return false, err
		}
		if mask.Has(event.TypeError) && !buf.HasErrors() {
			if err := buf.Log(event.Event{Type: event.TypeError}); err != nil {
				return false, err
			}
		}
		appendPrefixed(events, buf.All(), path)
		return false, nil
	}
	appendPrefixed(events, buf.All(), path)
	*out = result
	return true, nil
}

// Emit validates evs, then appends those allowed by mask to events with path
// prepended. It is the fast-form counterpart of Log.
func Emit(events *[]event.Event, mask event.Mask, path event.Path, evs ...event.Event) error {
	accepted, err := event.Accept(evs, mask)
	if err != nil {
		return err
	}
	appendPrefixed(events, accepted, path)
	return nil
}

func appendPrefixed(events *[]event.Event, src []event.Event, path event.Path) {
	for _, e := range src {
		*events = append(*events, e.Prefixed(path))
	}
}

// Fast returns a FastAction for a, emulating the fast form when a has none.
func Fast(a Action) FastAction {
	if fa, ok := a.(FastAction); ok {
		return fa
	}
	return emulated{a}
}

type emulated struct {
	Action
}

func (e emulated) FastApply(input any, out *any, mask event.Mask, events *[]event.Event, path event.Path) (bool, error) {
	return Emulate(e.Action, input, out, mask, events, path)
}

func (e emulated) Capabilities() Capability {
	return CapabilitiesOf(e.Action)
}
