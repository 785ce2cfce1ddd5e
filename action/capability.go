package action

import (
	"strings"

	"github.com/auditmos/actionkit/event"
)

// Capability flags describe guarantees an action makes. They are not
// enforced; composition code reads them to decide what is safe to batch,
// cache or retry.
type Capability uint8

const (
	// NoEffect: no side effects outside the returned value and the log.
	NoEffect Capability = 1 << iota
	// NoOutput: the returned value carries no information.
	NoOutput
	// Idempotent: f(x) == f(f(x)).
	Idempotent
	// Deterministic: equal inputs give equal outputs and events.
	Deterministic
)

func (c Capability) Has(flags Capability) bool {
	return c&flags == flags
}

func (c Capability) String() string {
	var names []string
	for _, f := range []struct {
		flag Capability
		name string
	}{
		{NoEffect, "no-effect"},
		{NoOutput, "no-output"},
		{Idempotent, "idempotent"},
		{Deterministic, "deterministic"},
	} {
		if c&f.flag != 0 {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Describer is implemented by actions that declare capabilities.
type Describer interface {
	Capabilities() Capability
}

func CapabilitiesOf(a Action) Capability {
	if d, ok := a.(Describer); ok {
		return d.Capabilities()
	}
	return 0
}

// Declare attaches capabilities to a. The fast form is preserved.
func Declare(a Action, caps Capability) FastAction {
	return declared{fast: Fast(a), caps: caps}
}

type declared struct {
	fast FastAction
	caps Capability
}

func (d declared) Apply(input any, log event.Log) (any, error) {
	return d.fast.Apply(input, log)
}

func (d declared) FastApply(input any, out *any, mask event.Mask, events *[]event.Event, path event.Path) (bool, error) {
	return d.fast.FastApply(input, out, mask, events, path)
}

func (d declared) Capabilities() Capability {
	return d.caps
}
