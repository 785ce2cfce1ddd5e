package endpoint

import (
	"strings"
)

// Segment is one step of a chain. Params is nil when the caller supplied
// none.
type Segment struct {
	Name   string `json:"name"`
	Params any    `json:"params,omitempty"`
}

func Seg(name string) Segment {
	return Segment{Name: name}
}

func SegWith(name string, params any) Segment {
	return Segment{Name: name, Params: params}
}

type Chain []Segment

// ParseChain splits a dotted name into segments without params.
func ParseChain(s string) Chain {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	c := make(Chain, len(parts))
	for i, p := range parts {
		c[i] = Seg(p)
	}
	return c
}

// WithLeafParams returns a copy of c whose last segment carries params.
func (c Chain) WithLeafParams(params any) Chain {
	out := append(Chain(nil), c...)
	if len(out) > 0 {
		out[len(out)-1].Params = params
	}
	return out
}

func (c Chain) Names() []string {
	names := make([]string, len(c))
	for i, s := range c {
		names[i] = s.Name
	}
	return names
}

func (c Chain) String() string {
	return strings.Join(c.Names(), ".")
}
