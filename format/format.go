// Package format validates and normalizes input values with declarative rule
// chains.
//
// A Format runs its rules in order. Filters rewrite the running value and
// cannot fail; the first failing test stops the chain and logs an error at
// the extraction path. Formats compose: Compose runs formats one after the
// other, Union picks the first alternative that succeeds, Record and List
// descend into maps and slices with per-key and per-index paths.
//
// Every Format is an action.FastAction with a native fast form, so it can be
// pipelined in front of the action whose parameters it validates.
package format

import (
	"github.com/auditmos/actionkit/action"
	"github.com/auditmos/actionkit/event"
)

type kind uint8

const (
	kindLeaf kind = iota
	kindComposed
	kindUnion
	kindRecord
	kindList
)

const (
	caps          = action.NoEffect | action.Deterministic | action.Idempotent
	transformCaps = action.NoEffect | action.Deterministic
)

type Format struct {
	kind    kind
	rules   []Rule
	subs    []action.FastAction
	fields  []Field
	elem    action.FastAction
	message string
	caps    action.Capability
}

// New returns a Format: deterministic, side-effect free and idempotent.
func New(rules ...Rule) *Format {
	return &Format{kind: kindLeaf, rules: append([]Rule(nil), rules...), caps: caps}
}

// NewTransform is New without the idempotence guarantee.
func NewTransform(rules ...Rule) *Format {
	f := New(rules...)
	f.caps = transformCaps
	return f
}

// Compose runs subs in order, each on the previous one's output, then the
// composed format's own rules. The first failing sub stops the chain and its
// events are the only errors reported.
func Compose(subs ...action.Action) *Format {
	return &Format{kind: kindComposed, subs: fastAll(subs), caps: capsOf(caps, subs)}
}

// Union tries each alternative on the original value and keeps the first
// that succeeds. If all fail, the last alternative's events are reported,
// unless a Message override is set.
func Union(alternatives ...action.Action) *Format {
	return &Format{kind: kindUnion, subs: fastAll(alternatives), caps: capsOf(caps, alternatives)}
}

func fastAll(actions []action.Action) []action.FastAction {
	out := make([]action.FastAction, len(actions))
	for i, a := range actions {
		out[i] = action.Fast(a)
	}
	return out
}

func capsOf(base action.Capability, actions []action.Action) action.Capability {
	c := base
	for _, a := range actions {
		c &= action.CapabilitiesOf(a)
	}
	return c
}

// Clone returns a copy that shares no mutable state with f.
func (f *Format) Clone() *Format {
	c := *f
	c.rules = append([]Rule(nil), f.rules...)
	c.subs = append([]action.FastAction(nil), f.subs...)
	c.fields = append([]Field(nil), f.fields...)
	return &c
}

// With returns a copy of f with rules appended.
func (f *Format) With(rules ...Rule) *Format {
	c := f.Clone()
	c.rules = append(c.rules, rules...)
	return c
}

// Message returns a copy of f that reports a single error with msg at the
// extraction path whenever it fails, instead of the underlying events.
func (f *Format) Message(msg string) *Format {
	c := f.Clone()
	c.message = msg
	return c
}

func (f *Format) Capabilities() action.Capability {
	return f.caps
}

// Extract validates v and logs events at path. On failure it returns a nil
// value and an *action.Failure referring to log.
func (f *Format) Extract(v any, log event.Log, path event.Path) (any, error) {
	var events []event.Event
	out, ok, err := f.eval(v, path, log.Mask(), &events)
	if err != nil {
		return nil, err
	}
	if err := log.Log(events...); err != nil {
		return nil, err
	}
	if !ok {
		return nil, &action.Failure{Log: log}
	}
	return out, nil
}

func (f *Format) Apply(input any, log event.Log) (any, error) {
	return f.Extract(input, log, nil)
}

func (f *Format) FastApply(input any, out *any, mask event.Mask, events *[]event.Event, path event.Path) (bool, error) {
	v, ok, err := f.eval(input, path, mask, events)
	if err != nil || !ok {
		*out = nil
		return false, err
	}
	*out = v
	return true, nil
}

func (f *Format) eval(v any, path event.Path, mask event.Mask, events *[]event.Event) (any, bool, error) {
	if f.message == "" {
		return f.evalKind(v, path, mask, events)
	}
	var scratch []event.Event
	out, ok, err := f.evalKind(v, path, mask, &scratch)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, action.Emit(events, mask, path, event.Error(f.message))
	}
	*events = append(*events, scratch...)
	return out, true, nil
}

func (f *Format) evalKind(v any, path event.Path, mask event.Mask, events *[]event.Event) (any, bool, error) {
	switch f.kind {
	case kindComposed:
		return f.evalComposed(v, path, mask, events)
	case kindUnion:
		return f.evalUnion(v, path, mask, events)
	case kindRecord:
		return f.evalRecord(v, path, mask, events)
	case kindList:
		return f.evalList(v, path, mask, events)
	default:
		return f.runRules(v, path, mask, events)
	}
}

func (f *Format) runRules(v any, path event.Path, mask event.Mask, events *[]event.Event) (any, bool, error) {
	for _, r := range f.rules {
		if r.test != nil {
			if p := r.test(v); p != nil {
				return nil, false, action.Emit(events, mask, path, p.Event())
			}
		}
		if r.filter != nil {
			v = r.filter(v)
		}
	}
	return v, true, nil
}

func (f *Format) evalComposed(v any, path event.Path, mask event.Mask, events *[]event.Event) (any, bool, error) {
	for _, sub := range f.subs {
		var next any
		ok, err := sub.FastApply(v, &next, mask, events, path)
		if err != nil || !ok {
			return nil, false, err
		}
		v = next
	}
	return f.runRules(v, path, mask, events)
}

func (f *Format) evalUnion(v any, path event.Path, mask event.Mask, events *[]event.Event) (any, bool, error) {
	if len(f.subs) == 0 {
		return nil, false, action.Emit(events, mask, path, event.Error("no alternative matched").WithCode(CodeNoMatch))
	}
	var last []event.Event
	for _, alt := range f.subs {
		var attempt []event.Event
		var res any
		ok, err := alt.FastApply(v, &res, mask, &attempt, path)
		if err != nil {
			return nil, false, err
		}
		if ok {
			*events = append(*events, attempt...)
			return f.runRules(res, path, mask, events)
		}
		last = attempt
	}
	*events = append(*events, last...)
	return nil, false, nil
}
