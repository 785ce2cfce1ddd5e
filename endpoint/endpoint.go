// Package endpoint resolves segment names to child endpoints or actions and
// dispatches chains of segments through the resulting tree.
package endpoint

import (
	"fmt"
	"sort"

	"github.com/auditmos/actionkit/action"
)

// Endpoint resolves a name to a child endpoint, an action, or nothing.
// Endpoints and actions share one namespace per parent.
type Endpoint interface {
	Resolve(name string) Resolution
}

// Resolution is the result of Resolve. The zero value means not found. At
// most one field is set.
type Resolution struct {
	Endpoint Endpoint
	Action   action.Action
}

var NotFound = Resolution{}

func Branch(e Endpoint) Resolution {
	return Resolution{Endpoint: e}
}

func Leaf(a action.Action) Resolution {
	return Resolution{Action: a}
}

func (r Resolution) Found() bool {
	return r.Endpoint != nil || r.Action != nil
}

func (r Resolution) IsBranch() bool {
	return r.Endpoint != nil && r.Action == nil
}

func (r Resolution) IsLeaf() bool {
	return r.Action != nil && r.Endpoint == nil
}

type Func func(name string) Resolution

func (f Func) Resolve(name string) Resolution {
	return f(name)
}

// Table is an Endpoint backed by an explicit name registry built at
// construction time.
type Table struct {
	entries map[string]Resolution
}

func NewTable() *Table {
	return &Table{entries: make(map[string]Resolution)}
}

// Branch registers a child endpoint. Registering a name twice panics.
func (t *Table) Branch(name string, e Endpoint) *Table {
	if e == nil {
		panic(fmt.Sprintf("endpoint: nil endpoint registered for %q", name))
	}
	return t.register(name, Branch(e))
}

// Leaf registers an action. Registering a name twice panics.
func (t *Table) Leaf(name string, a action.Action) *Table {
	if a == nil {
		panic(fmt.Sprintf("endpoint: nil action registered for %q", name))
	}
	return t.register(name, Leaf(a))
}

func (t *Table) register(name string, r Resolution) *Table {
	if _, exists := t.entries[name]; exists {
		panic(fmt.Sprintf("endpoint: %q registered twice", name))
	}
	t.entries[name] = r
	return t
}

func (t *Table) Resolve(name string) Resolution {
	return t.entries[name]
}

func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
