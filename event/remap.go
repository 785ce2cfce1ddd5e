package event

import "sort"

// PathMap rewrites path prefixes. For a given path only one rule applies: the
// longest matching base, and among bases of equal length the one added last.
type PathMap struct {
	rules []pathRule
}

type pathRule struct {
	from  Path
	to    Path
	order int
}

// MapRule pairs a dotted old base with its new base. An empty From matches
// every path, which is how pathless events get a path assigned.
type MapRule struct {
	From string
	To   string
}

func NewPathMap(rules ...MapRule) *PathMap {
	m := &PathMap{}
	for _, r := range rules {
		m.Map(ParsePath(r.From), ParsePath(r.To))
	}
	return m
}

func (m *PathMap) Map(from, to Path) *PathMap {
	m.rules = append(m.rules, pathRule{from: from.Clone(), to: to.Clone(), order: len(m.rules)})
	sort.SliceStable(m.rules, func(i, j int) bool {
		a, b := m.rules[i], m.rules[j]
		if len(a.from) != len(b.from) {
			return len(a.from) > len(b.from)
		}
		return a.order > b.order
	})
	return m
}

func (m *PathMap) Len() int {
	return len(m.rules)
}

// Remap returns p rewritten by the most specific matching rule, or p
// unchanged when no rule matches.
func (m *PathMap) Remap(p Path) Path {
	for _, r := range m.rules {
		if !p.HasPrefix(r.from) {
			continue
		}
		return r.to.Join(p[len(r.from):])
	}
	return p
}

// Import logs events into dst with their paths remapped.
func (m *PathMap) Import(dst Log, events []Event) error {
	out := make([]Event, len(events))
	for i, e := range events {
		e.Path = m.Remap(e.Path)
		out[i] = e
	}
	return dst.Log(out...)
}

// Remapped returns a view over parent that remaps the path of every event.
func Remapped(parent Log, m *PathMap) Log {
	return WithTransform(parent, func(e Event) Event {
		e.Path = m.Remap(e.Path)
		return e
	})
}
