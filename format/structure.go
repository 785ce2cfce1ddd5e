package format

import (
	"reflect"

	"github.com/auditmos/actionkit/action"
	"github.com/auditmos/actionkit/event"
)

// Field binds a map key to the format that extracts it.
type Field struct {
	Name   string
	Format action.Action
}

// Record extracts a map[string]any field by field. Each field is extracted
// at path.Name, a missing key is passed as nil, and keys not declared are
// dropped from the result. All fields are checked even after one fails.
func Record(fields ...Field) *Format {
	f := &Format{kind: kindRecord, fields: make([]Field, len(fields)), caps: caps}
	for i, fd := range fields {
		f.fields[i] = Field{Name: fd.Name, Format: action.Fast(fd.Format)}
		f.caps &= action.CapabilitiesOf(fd.Format)
	}
	return f
}

// List extracts every element of a slice with elem, at path.i.
func List(elem action.Action) *Format {
	return &Format{kind: kindList, elem: action.Fast(elem), caps: caps & action.CapabilitiesOf(elem)}
}

// Optional lets nil through untouched and applies f to anything else.
func Optional(f action.Action) *Format {
	return Union(New(Check(CodeType, "expected nothing", func(v any) bool { return v == nil })), f)
}

func (f *Format) evalRecord(v any, path event.Path, mask event.Mask, events *[]event.Event) (any, bool, error) {
	m, ok := toMap(v)
	if !ok {
		return nil, false, action.Emit(events, mask, path, typeProblem("an object").Event())
	}

	out := make(map[string]any, len(f.fields))
	valid := true
	for _, fd := range f.fields {
		raw, present := m[fd.Name]
		var res any
		ok, err := fd.Format.(action.FastAction).FastApply(raw, &res, mask, events, path.Append(fd.Name))
		if err != nil {
			return nil, false, err
		}
		if !ok {
			valid = false
			continue
		}
		if res != nil || present {
			out[fd.Name] = res
		}
	}
	if !valid {
		return nil, false, nil
	}
	return f.runRules(out, path, mask, events)
}

func (f *Format) evalList(v any, path event.Path, mask event.Mask, events *[]event.Event) (any, bool, error) {
	items, ok := toSlice(v)
	if !ok {
		return nil, false, action.Emit(events, mask, path, typeProblem("a list").Event())
	}

	out := make([]any, len(items))
	valid := true
	for i, item := range items {
		var res any
		ok, err := f.elem.FastApply(item, &res, mask, events, path.Append(i))
		if err != nil {
			return nil, false, err
		}
		if !ok {
			valid = false
			continue
		}
		out[i] = res
	}
	if !valid {
		return nil, false, nil
	}
	return f.runRules(out, path, mask, events)
}

func toMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out, true
	}
	return nil, false
}

func toSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
