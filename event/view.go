package event

import "errors"

// View forwards writes to a parent log after prefixing paths and applying an
// optional transform. It stores nothing.
type View struct {
	parent    Log
	prefix    Path
	transform func(Event) Event
}

// WithPath returns a view that prepends prefix to every event path. Nested
// path views collapse into one view with the prefixes joined left to right.
func WithPath(parent Log, prefix ...any) Log {
	p := NewPath(prefix...)
	return WithPrefix(parent, p)
}

func WithPrefix(parent Log, prefix Path) Log {
	if len(prefix) == 0 {
		return parent
	}
	if v, ok := parent.(*View); ok && v.transform == nil {
		return &View{parent: v.parent, prefix: v.prefix.Join(prefix)}
	}
	return &View{parent: parent, prefix: prefix.Clone()}
}

// WithTransform returns a view that rewrites every event with fn before
// forwarding it. fn must not change the event type to an invalid one.
func WithTransform(parent Log, fn func(Event) Event) Log {
	return &View{parent: parent, transform: fn}
}

func (v *View) Mask() Mask {
	return v.parent.Mask()
}

func (v *View) Parent() Log {
	return v.parent
}

func (v *View) Prefix() Path {
	return v.prefix.Clone()
}

func (v *View) Log(events ...Event) error {
	if err := Validate(events); err != nil {
		return err
	}
	out := make([]Event, len(events))
	for i, e := range events {
		e = e.Prefixed(v.prefix)
		if v.transform != nil {
			e = v.transform(e)
		}
		out[i] = e
	}
	return v.parent.Log(out...)
}

// Root follows views up to the log that stores events.
func Root(l Log) Log {
	for {
		v, ok := l.(*View)
		if !ok {
			return l
		}
		l = v.parent
	}
}

// Tee writes every event to each log in turn. The mask is the union of the
// wrapped masks; each log still applies its own.
func Tee(logs ...Log) Log {
	return tee(logs)
}

type tee []Log

func (t tee) Mask() Mask {
	var m Mask
	for _, l := range t {
		m |= l.Mask()
	}
	return m
}

func (t tee) Log(events ...Event) error {
	if err := Validate(events); err != nil {
		return err
	}
	var errs []error
	for _, l := range t {
		if err := l.Log(events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
