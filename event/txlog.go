package event

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoTransaction    = errors.New("no open transaction")
	ErrOpenTransactions = errors.New("log closed with open transactions")
)

// Failure carries the error events that ended a transactional log.
type Failure struct {
	Errors []Event
}

func (f *Failure) Error() string {
	switch len(f.Errors) {
	case 0:
		return "failure"
	case 1:
		return f.Errors[0].String()
	}
	parts := make([]string, len(f.Errors))
	for i, e := range f.Errors {
		parts[i] = e.String()
	}
	return fmt.Sprintf("%d errors: %s", len(f.Errors), strings.Join(parts, "; "))
}

// TxLog buffers errors inside nested transactions. Committing the outermost
// transaction with buffered errors returns a *Failure holding all of them.
// Logging an error with no transaction open fails immediately. Non-error
// events go to the forward log, if any.
type TxLog struct {
	mask        Mask
	forward     Log
	errors      []Event
	checkpoints []int
}

func NewTxLog(mask Mask, forward Log) *TxLog {
	return &TxLog{mask: mask, forward: forward}
}

func (l *TxLog) Mask() Mask {
	return l.mask
}

func (l *TxLog) Log(events ...Event) error {
	accepted, err := Accept(events, l.mask)
	if err != nil {
		return err
	}

	var errs, rest []Event
	for _, e := range accepted {
		if e.Type == TypeError {
			errs = append(errs, e.detached())
		} else {
			rest = append(rest, e)
		}
	}

	if len(rest) > 0 && l.forward != nil {
		if err := l.forward.Log(rest...); err != nil {
			return err
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if len(l.checkpoints) == 0 {
		return &Failure{Errors: errs}
	}
	l.errors = append(l.errors, errs...)
	return nil
}

func (l *TxLog) Begin() {
	l.checkpoints = append(l.checkpoints, len(l.errors))
}

// Rollback discards the errors logged since the matching Begin.
func (l *TxLog) Rollback() error {
	n := len(l.checkpoints)
	if n == 0 {
		return ErrNoTransaction
	}
	l.errors = l.errors[:l.checkpoints[n-1]]
	l.checkpoints = l.checkpoints[:n-1]
	return nil
}

func (l *TxLog) Commit() error {
	n := len(l.checkpoints)
	if n == 0 {
		return ErrNoTransaction
	}
	l.checkpoints = l.checkpoints[:n-1]
	if n > 1 || len(l.errors) == 0 {
		return nil
	}
	errs := l.errors
	l.errors = nil
	return &Failure{Errors: errs}
}

func (l *TxLog) Depth() int {
	return len(l.checkpoints)
}

func (l *TxLog) Errors() []Event {
	return append([]Event(nil), l.errors...)
}

func (l *TxLog) HasErrors() bool {
	return len(l.errors) > 0
}

// Close reports ErrOpenTransactions if a Begin was never matched.
func (l *TxLog) Close() error {
	if len(l.checkpoints) > 0 {
		return fmt.Errorf("%w: %d", ErrOpenTransactions, len(l.checkpoints))
	}
	return nil
}

// Tx runs fn inside a transaction, committing on success and rolling back
// when fn returns an error.
func (l *TxLog) Tx(fn func() error) error {
	l.Begin()
	if err := fn(); err != nil {
		if rbErr := l.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return l.Commit()
}
