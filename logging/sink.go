package logging

import (
	"github.com/auditmos/actionkit/event"
)

// EventSink is an event.Log that writes each event as a log line. Errors are
// logged at ERROR, warnings at WARN, info and success at INFO.
type EventSink struct {
	logger    Logger
	component string
	mask      event.Mask
}

func NewEventSink(logger Logger, component string, mask event.Mask) *EventSink {
	return &EventSink{logger: logger, component: component, mask: mask}
}

func (s *EventSink) Mask() event.Mask {
	return s.mask
}

func (s *EventSink) Log(events ...event.Event) error {
	accepted, err := event.Accept(events, s.mask)
	if err != nil {
		return err
	}
	for _, e := range accepted {
		fields := Fields{}
		if len(e.Path) > 0 {
			fields["path"] = e.Path.String()
		}
		if e.Code != "" {
			fields["code"] = e.Code
		}
		if len(e.Details) > 0 {
			fields["details"] = e.Details
		}
		l := s.logger.WithFields(fields)
		op := e.Type.String()
		switch e.Type {
		case event.TypeError:
			l.Error(s.component, op, e.Message)
		case event.TypeWarning:
			l.Warn(s.component, op, e.Message)
		default:
			l.Info(s.component, op, e.Message)
		}
	}
	return nil
}
