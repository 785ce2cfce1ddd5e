package action

import "github.com/auditmos/actionkit/event"

// Pipeline feeds each stage the previous stage's output and stops at the
// first stage that fails.
type Pipeline struct {
	stages []Action
}

func NewPipeline(stages ...Action) *Pipeline {
	return &Pipeline{stages: append([]Action(nil), stages...)}
}

func (p *Pipeline) Stages() []Action {
	return append([]Action(nil), p.stages...)
}

func (p *Pipeline) Apply(input any, log event.Log) (any, error) {
	v := input
	for _, stage := range p.stages {
		next, err := stage.Apply(v, log)
		if err != nil {
			return nil, err
		}
		v = next
	}
	return v, nil
}

func (p *Pipeline) FastApply(input any, out *any, mask event.Mask, events *[]event.Event, path event.Path) (bool, error) {
	v := input
	for _, stage := range p.stages {
		var next any
		ok, err := FastApply(stage, v, &next, mask, events, path)
		if err != nil || !ok {
			*out = nil
			return false, err
		}
		v = next
	}
	*out = v
	return true, nil
}

// Capabilities holds only what every stage guarantees.
func (p *Pipeline) Capabilities() Capability {
	if len(p.stages) == 0 {
		return NoEffect | Idempotent | Deterministic
	}
	c := CapabilitiesOf(p.stages[0])
	for _, stage := range p.stages[1:] {
		c &= CapabilitiesOf(stage)
	}
	return c
}
