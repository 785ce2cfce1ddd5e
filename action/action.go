// Package action defines the invocation contract shared by everything the
// runtime can call: validators, domain operations and pipelines of both.
//
// An Action reports failure by returning a *Failure whose only payload is the
// log holding the error events. Success never logs an error event; failure
// logs at least one error (unless the log masks errors out) and never logs a
// success event. Events are logged most specific first.
//
// FastAction is an optional second form with identical semantics for hot
// paths: results and events go into caller-owned slots instead of a Log.
package action

import (
	"errors"

	"github.com/auditmos/actionkit/event"
)

type Action interface {
	Apply(input any, log event.Log) (any, error)
}

// FastAction writes the result to out, which it overwrites completely and
// leaves nil on failure. events is append-only; it must not be read or
// replaced. Only events whose type is in mask are appended, each prefixed
// with path. The returned error is reserved for programmer and environment
// failures; a business-rule failure is ok == false with a nil error.
type FastAction interface {
	Action
	FastApply(input any, out *any, mask event.Mask, events *[]event.Event, path event.Path) (ok bool, err error)
}

type Func func(input any, log event.Log) (any, error)

func (f Func) Apply(input any, log event.Log) (any, error) {
	return f(input, log)
}

// Failure is the control-flow signal for "see the attached log".
type Failure struct {
	Log event.Log
}

func (f *Failure) Error() string {
	if r, ok := event.Root(f.Log).(event.Reader); ok {
		if errs := r.Events(event.MaskOf(event.TypeError)); len(errs) > 0 {
			return "action failed: " + errs[len(errs)-1].String()
		}
	}
	return "action failed"
}

func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// Fail logs events to log and returns a *Failure referencing it. When none of
// the events is an error, an empty error event is appended so the failure is
// always observable.
func Fail(log event.Log, events ...event.Event) error {
	hasError := false
	for _, e := range events {
		if e.Type == event.TypeError {
			hasError = true
			break
		}
	}
	if !hasError {
		events = append(events, event.Event{Type: event.TypeError})
	}
	if err := log.Log(events...); err != nil {
		return err
	}
	return &Failure{Log: log}
}

// Rebind translates a failure raised against an inner view so that it refers
// to log instead. Other errors pass through unchanged.
func Rebind(err error, log event.Log) error {
	var f *Failure
	if errors.As(err, &f) && f.Log != log {
		return &Failure{Log: log}
	}
	return err
}

// Run applies a to input against a fresh buffer with the given mask.
func Run(a Action, input any, mask event.Mask) (any, *event.Buffer, error) {
	buf := event.NewBuffer(mask)
	out, err := a.Apply(input, buf)
	return out, buf, err
}
