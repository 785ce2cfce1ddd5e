package event

import (
	"fmt"
	"slices"
)

// Log records events. Log is atomic: if any event has an unknown type,
// nothing is recorded and an *InvalidTypeError is returned. Events whose type
// is outside Mask are dropped silently.
type Log interface {
	Log(events ...Event) error
	Mask() Mask
}

// Reader is implemented by logs that keep their events for inspection.
type Reader interface {
	Events(filter Mask) []Event
	HasEvents(filter Mask) bool
}

type InvalidTypeError struct {
	Index int
	Type  Type
}

func (e *InvalidTypeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid event type %d", uint8(e.Type))
	}
	return fmt.Sprintf("event %d: invalid event type %d", e.Index, uint8(e.Type))
}

// Validate checks every event type before anything is written.
func Validate(events []Event) error {
	for i, e := range events {
		if !e.Type.Valid() {
			return &InvalidTypeError{Index: i, Type: e.Type}
		}
	}
	return nil
}

// Accept validates events and returns the ones mask lets through. With
// MaskAll the per-event mask test is skipped.
func Accept(events []Event, mask Mask) ([]Event, error) {
	if err := Validate(events); err != nil {
		return nil, err
	}
	if mask == MaskAll {
		return events, nil
	}
	if mask == MaskNone {
		return nil, nil
	}
	return Filter(events, mask), nil
}

// Buffer is an in-memory Log.
type Buffer struct {
	mask   Mask
	retain Mask
	events []Event
}

type BufferOption func(*Buffer)

// RetainErrors keeps error events even when the mask excludes them. Mask then
// reports errors as accepted so producers that pre-filter on it still emit
// them; Requested returns the mask the buffer was built with.
func RetainErrors() BufferOption {
	return func(b *Buffer) {
		b.retain |= Mask(TypeError)
	}
}

func NewBuffer(mask Mask, opts ...BufferOption) *Buffer {
	b := &Buffer{mask: mask, retain: mask}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Mask is the set of types the buffer keeps, retained types included.
func (b *Buffer) Mask() Mask {
	return b.retain
}

func (b *Buffer) Requested() Mask {
	return b.mask
}

// Log stores copies of the accepted events, so later changes to a caller's
// details map do not reach the buffer.
func (b *Buffer) Log(events ...Event) error {
	accepted, err := Accept(events, b.retain)
	if err != nil {
		return err
	}
	for _, e := range accepted {
		b.events = append(b.events, e.detached())
	}
	return nil
}

// Events returns the stored events of the filtered types in logging order.
// The slice is the caller's; the Details maps inside it are shared and must
// be treated as read-only.
func (b *Buffer) Events(filter Mask) []Event {
	if filter.Covers(b.retain) {
		return slices.Clone(b.events)
	}
	return Filter(b.events, filter)
}

func (b *Buffer) HasEvents(filter Mask) bool {
	if filter.Covers(b.retain) {
		return len(b.events) > 0
	}
	for _, e := range b.events {
		if filter.Has(e.Type) {
			return true
		}
	}
	return false
}

func (b *Buffer) All() []Event {
	return b.Events(MaskAll)
}

func (b *Buffer) Errors() []Event {
	return b.Events(Mask(TypeError))
}

func (b *Buffer) HasErrors() bool {
	return b.HasEvents(Mask(TypeError))
}

func (b *Buffer) LastError() (Event, bool) {
	for i := len(b.events) - 1; i >= 0; i-- {
		if b.events[i].Type == TypeError {
			return b.events[i], true
		}
	}
	return Event{}, false
}

func (b *Buffer) Len() int {
	return len(b.events)
}

// Discard is a Log that records nothing.
var Discard Log = discard{}

type discard struct{}

func (discard) Log(events ...Event) error { return Validate(events) }
func (discard) Mask() Mask                { return MaskNone }
