// Package event holds the structured events produced by actions and the logs
// that collect them.
//
// A Log is append-only. Views created with WithPath, WithTransform and
// Remapped forward to their parent and never keep storage of their own.
package event

import (
	"fmt"
	"strings"
)

type Type uint8

const (
	TypeError Type = 1 << iota
	TypeWarning
	TypeInfo
	TypeSuccess
)

var typeNames = map[Type]string{
	TypeError:   "error",
	TypeWarning: "warning",
	TypeInfo:    "info",
	TypeSuccess: "success",
}

func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, &InvalidTypeError{Index: -1, Type: t}
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	parsed, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseType(s string) (Type, error) {
	for t, name := range typeNames {
		if strings.EqualFold(name, s) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// Mask selects event types. A log drops events whose type is not in its mask.
type Mask uint8

const (
	MaskNone Mask = 0
	MaskAll       = Mask(TypeError | TypeWarning | TypeInfo | TypeSuccess)
)

func MaskOf(types ...Type) Mask {
	var m Mask
	for _, t := range types {
		m |= Mask(t)
	}
	return m
}

func (m Mask) Has(t Type) bool {
	return m&Mask(t) != 0
}

// Covers reports whether every type in other is also in m.
func (m Mask) Covers(other Mask) bool {
	return m&other == other
}

func (m Mask) String() string {
	if m == MaskNone {
		return "none"
	}
	var names []string
	for _, t := range []Type{TypeError, TypeWarning, TypeInfo, TypeSuccess} {
		if m.Has(t) {
			names = append(names, t.String())
		}
	}
	return strings.Join(names, "|")
}

// ParseMask accepts a list of type names separated by "|" or ",". "all" and
// "none" are accepted as well.
func ParseMask(s string) (Mask, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "none":
		return MaskNone, nil
	case "all":
		return MaskAll, nil
	}
	var m Mask
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		t, err := ParseType(strings.TrimSpace(part))
		if err != nil {
			return MaskNone, err
		}
		m |= Mask(t)
	}
	return m, nil
}

// Event is immutable once logged. An absent Path is the same as an empty one.
type Event struct {
	Type    Type           `json:"type"`
	Path    Path           `json:"path,omitempty"`
	Message string         `json:"message,omitempty"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func Error(message string) Event {
	return Event{Type: TypeError, Message: message}
}

func Errorf(format string, args ...any) Event {
	return Error(fmt.Sprintf(format, args...))
}

func Warning(message string) Event {
	return Event{Type: TypeWarning, Message: message}
}

func Info(message string) Event {
	return Event{Type: TypeInfo, Message: message}
}

func Success(message string) Event {
	return Event{Type: TypeSuccess, Message: message}
}

func (e Event) WithCode(code string) Event {
	e.Code = code
	return e
}

// detached returns e with its own copies of Path and Details.
func (e Event) detached() Event {
	if len(e.Path) > 0 {
		e.Path = e.Path.Clone()
	}
	if e.Details != nil {
		details := make(map[string]any, len(e.Details))
		for k, v := range e.Details {
			details[k] = v
		}
		e.Details = details
	}
	return e
}

// At returns a copy of e with its path replaced.
func (e Event) At(path ...any) Event {
	e.Path = NewPath(path...)
	return e
}

func (e Event) WithDetail(key string, value any) Event {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

// Prefixed returns a copy of e whose path is prefix followed by e.Path.
func (e Event) Prefixed(prefix Path) Event {
	if len(prefix) == 0 {
		return e
	}
	e.Path = prefix.Join(e.Path)
	return e
}

func (e Event) String() string {
	var b strings.Builder
	b.WriteString(e.Type.String())
	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(e.Path.String())
	}
	if e.Code != "" {
		b.WriteString(" [")
		b.WriteString(e.Code)
		b.WriteString("]")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Filter returns the events whose type is in mask, preserving order.
func Filter(events []Event, mask Mask) []Event {
	var out []Event
	for _, e := range events {
		if mask.Has(e.Type) {
			out = append(out, e)
		}
	}
	return out
}
