package action

import (
	"errors"
	"fmt"

	"github.com/auditmos/actionkit/event"
)

var ErrContract = errors.New("action contract violated")

// Checked wraps a so that every call is verified against the logging rules of
// the Action contract. Violations are returned as errors wrapping
// ErrContract instead of the action's own result.
func Checked(a Action) Action {
	return checked{inner: a}
}

type checked struct {
	inner Action
}

func (c checked) Apply(input any, log event.Log) (any, error) {
	buf := event.NewBuffer(event.MaskAll)
	out, err := c.inner.Apply(input, buf)

	if err != nil && !IsFailure(err) {
		return nil, err
	}
	if err := verify(buf, err == nil); err != nil {
		return nil, err
	}
	if logErr := log.Log(buf.All()...); logErr != nil {
		return nil, logErr
	}
	if err != nil {
		return nil, &Failure{Log: log}
	}
	return out, nil
}

func (c checked) Capabilities() Capability {
	return CapabilitiesOf(c.inner)
}

func verify(buf *event.Buffer, succeeded bool) error {
	if succeeded {
		if last, ok := buf.LastError(); ok {
			return fmt.Errorf("%w: success logged %s", ErrContract, last)
		}
		return nil
	}
	if buf.HasEvents(event.MaskOf(event.TypeSuccess)) {
		return fmt.Errorf("%w: failure logged a success event", ErrContract)
	}
	if !buf.HasErrors() {
		return fmt.Errorf("%w: failure logged no error", ErrContract)
	}
	return nil
}
