package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Path is an ordered list of string and int segments locating the origin of
// an event inside nested input.
type Path []any

// NewPath normalizes segments: ints of any width become int, everything else
// is kept as its string form.
func NewPath(segments ...any) Path {
	if len(segments) == 0 {
		return nil
	}
	p := make(Path, len(segments))
	for i, s := range segments {
		p[i] = normalizeSegment(s)
	}
	return p
}

func normalizeSegment(s any) any {
	switch v := s.(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ParsePath splits a dotted path. Segments made only of digits become ints.
func ParsePath(s string) Path {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, len(parts))
	for i, part := range parts {
		if n, err := strconv.Atoi(part); err == nil && n >= 0 && strconv.Itoa(n) == part {
			p[i] = n
		} else {
			p[i] = part
		}
	}
	return p
}

// Join returns a new path: p followed by q. Neither input is modified.
func (p Path) Join(q Path) Path {
	if len(p) == 0 && len(q) == 0 {
		return nil
	}
	out := make(Path, 0, len(p)+len(q))
	out = append(out, p...)
	return append(out, q...)
}

func (p Path) Append(segments ...any) Path {
	return p.Join(NewPath(segments...))
}

// HasPrefix compares segments by their string form, so "0" matches 0.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if segmentKey(p[i]) != segmentKey(prefix[i]) {
			return false
		}
	}
	return true
}

func (p Path) Equal(q Path) bool {
	return len(p) == len(q) && p.HasPrefix(q)
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = segmentKey(s)
	}
	return strings.Join(parts, ".")
}

func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return append(Path(nil), p...)
}

// UnmarshalJSON restores int segments, which encoding/json decodes as float64.
func (p *Path) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = NewPath(raw...)
	return nil
}

func segmentKey(s any) string {
	switch v := s.(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprint(normalizeSegment(v))
	}
}
