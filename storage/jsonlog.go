package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/auditmos/actionkit/event"
)

type JSONLogEntry struct {
	Timestamp int64          `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
	Type      event.Type     `json:"type"`
	Path      string         `json:"path,omitempty"`
	Message   string         `json:"message,omitempty"`
	Code      string         `json:"code,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// JSONLog writes accepted events as JSON lines. A Log call is written with a
// single Write.
type JSONLog struct {
	w         io.Writer
	mask      event.Mask
	requestID string
	now       func() time.Time
}

func NewJSONLog(w io.Writer, requestID string, mask event.Mask) *JSONLog {
	return &JSONLog{w: w, mask: mask, requestID: requestID, now: time.Now}
}

func (l *JSONLog) Mask() event.Mask {
	return l.mask
}

func (l *JSONLog) Log(events ...event.Event) error {
	accepted, err := event.Accept(events, l.mask)
	if err != nil {
		return err
	}
	if len(accepted) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	ts := l.now().UnixMilli()
	for _, e := range accepted {
		entry := JSONLogEntry{
			Timestamp: ts,
			RequestID: l.requestID,
			Type:      e.Type,
			Path:      e.Path.String(),
			Message:   e.Message,
			Code:      e.Code,
			Details:   e.Details,
		}
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
	}

	_, err = l.w.Write(buf.Bytes())
	return err
}
