package endpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/auditmos/actionkit/action"
	"github.com/auditmos/actionkit/event"
	"github.com/auditmos/actionkit/logging"
)

const component = "dispatch"

// Failure codes carried by *Failure and by the error event it logs.
const (
	CodeSegmentNotFound        = "segment_not_found"
	CodeActionExpected         = "action_expected"
	CodeEndpointResultExpected = "endpoint_result_expected"
	CodeDataResultExpected     = "data_result_expected"
)

// Failure reports a chain that could not be walked. Index is -1 for an empty
// chain. Like action.Failure, the detail lives in Log.
type Failure struct {
	Code    string
	Index   int
	Segment string
	Log     event.Log
}

func (f *Failure) Error() string {
	if f.Index < 0 {
		return "dispatch: " + f.Code
	}
	return fmt.Sprintf("dispatch: %s at segment %d (%q)", f.Code, f.Index, f.Segment)
}

// Unwrap exposes the failure as an action failure so callers that only know
// the action contract still detect it.
func (f *Failure) Unwrap() error {
	return &action.Failure{Log: f.Log}
}

// ParamFormatter is implemented by actions that declare a filter for their
// own params. It runs after the dispatcher-wide filter.
type ParamFormatter interface {
	ParamFormat() action.Action
}

// Observer is told about every finished dispatch. outcome is "ok", a Failure
// code, "action_failed" or "error".
type Observer interface {
	ObserveDispatch(chain Chain, outcome string, elapsed time.Duration)
}

const (
	OutcomeOK           = "ok"
	OutcomeActionFailed = "action_failed"
	OutcomeError        = "error"
)

type Option func(*Dispatcher)

// WithParamFilter runs filter over the params of every action before it is
// applied. A failing filter aborts the chain.
func WithParamFilter(filter action.Action) Option {
	return func(d *Dispatcher) {
		d.filter = filter
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// Dispatcher walks chains from a root endpoint.
type Dispatcher struct {
	root     Endpoint
	filter   action.Action
	logger   logging.Logger
	observer Observer
	now      func() time.Time
}

func NewDispatcher(root Endpoint, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		root:   root,
		logger: logging.NopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch resolves chain segment by segment and returns the output of the
// final action. Events raised by an action are logged under the names of the
// segments walked so far, the action's own name included.
func (d *Dispatcher) Dispatch(chain Chain, log event.Log) (any, error) {
	start := d.now()
	out, err := d.dispatch(chain, log)
	if d.observer != nil {
		d.observer.ObserveDispatch(chain, Outcome(err), d.now().Sub(start))
	}
	return out, err
}

// Outcome classifies the error returned by Dispatch the way observers see it.
func Outcome(err error) string {
	var f *Failure
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &f):
		return f.Code
	case action.IsFailure(err):
		return OutcomeActionFailed
	default:
		return OutcomeError
	}
}

func (d *Dispatcher) dispatch(chain Chain, log event.Log) (any, error) {
	logger := d.logger.WithFields(logging.Fields{"chain": chain.String()})
	if len(chain) == 0 {
		return nil, d.fail(logger, log, chain, CodeSegmentNotFound, -1, "empty chain")
	}

	current := d.root
	for i, seg := range chain {
		last := i == len(chain)-1
		r := current.Resolve(seg.Name)

		switch {
		case r.Endpoint != nil && r.Action != nil:
			return nil, fmt.Errorf("dispatch: segment %q resolved to both an endpoint and an action", seg.Name)
		case !r.Found():
			return nil, d.fail(logger, log, chain, CodeSegmentNotFound, i,
				fmt.Sprintf("segment %q not found", seg.Name))
		case r.Endpoint != nil:
			if last || seg.Params != nil {
				return nil, d.fail(logger, log, chain, CodeActionExpected, i,
					fmt.Sprintf("segment %q is an endpoint, an action is required", seg.Name))
			}
			logger.WithFields(logging.Fields{"segment": seg.Name, "index": i}).Debug(component, "resolve", "descending into endpoint")
			current = r.Endpoint
			continue
		}

		scoped := event.WithPrefix(log, chainPath(chain, i))
		params, err := d.filterParams(r.Action, seg.Params, scoped)
		if err != nil {
			return nil, d.actionError(logger, log, seg, i, err)
		}
		result, err := r.Action.Apply(params, scoped)
		if err != nil {
			return nil, d.actionError(logger, log, seg, i, err)
		}

		next, isEndpoint := result.(Endpoint)
		if last {
			if isEndpoint {
				return nil, d.fail(logger, log, chain, CodeDataResultExpected, i,
					fmt.Sprintf("action %q returned an endpoint, data was expected", seg.Name))
			}
			logger.WithFields(logging.Fields{"segment": seg.Name, "index": i}).Debug(component, "apply", "chain complete")
			return result, nil
		}
		if !isEndpoint || next == nil {
			return nil, d.fail(logger, log, chain, CodeEndpointResultExpected, i,
				fmt.Sprintf("action %q returned data, an endpoint was expected", seg.Name))
		}
		logger.WithFields(logging.Fields{"segment": seg.Name, "index": i}).Debug(component, "apply", "descending into returned endpoint")
		current = next
	}
	return nil, nil
}

func (d *Dispatcher) filterParams(a action.Action, params any, log event.Log) (any, error) {
	var err error
	if d.filter != nil {
		if params, err = d.filter.Apply(params, log); err != nil {
			return nil, err
		}
	}
	if pf, ok := a.(ParamFormatter); ok {
		if f := pf.ParamFormat(); f != nil {
			if params, err = f.Apply(params, log); err != nil {
				return nil, err
			}
		}
	}
	return params, nil
}

func (d *Dispatcher) actionError(logger logging.Logger, log event.Log, seg Segment, index int, err error) error {
	fields := logging.Fields{"segment": seg.Name, "index": index}
	if action.IsFailure(err) {
		logger.WithFields(fields).Warn(component, "apply", "action failed")
		return action.Rebind(err, log)
	}
	logger.WithFields(fields).WithError(err).Error(component, "apply", "action error")
	return err
}

func (d *Dispatcher) fail(logger logging.Logger, log event.Log, chain Chain, code string, index int, msg string) error {
	f := &Failure{Code: code, Index: index, Log: log}
	path := event.Path(nil)
	if index >= 0 {
		f.Segment = chain[index].Name
		path = chainPath(chain, index)
	}
	logger.WithFields(logging.Fields{"code": code, "index": index}).Warn(component, "resolve", msg)

	if err := log.Log(event.Error(msg).WithCode(code).At(path...)); err != nil {
		return errors.Join(f, err)
	}
	return f
}

func chainPath(chain Chain, index int) event.Path {
	p := make(event.Path, index+1)
	for i := 0; i <= index; i++ {
		p[i] = chain[i].Name
	}
	return p
}
