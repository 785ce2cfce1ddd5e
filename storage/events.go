package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/auditmos/actionkit/event"
	"github.com/oklog/ulid/v2"
)

// StoredEvent is an event as persisted for one request. Seq orders the events
// of a request in the order they were logged.
type StoredEvent struct {
	ID        string
	RequestID string
	Seq       int
	Event     event.Event
	CreatedAt int64
}

type EventQuery struct {
	RequestID string
	// Mask restricts the types returned. MaskNone is treated as MaskAll.
	Mask  event.Mask
	Limit int
}

type EventRepo interface {
	Save(requestID string, events []event.Event) error
	List(q EventQuery) ([]*StoredEvent, error)
	Prune(olderThan time.Time) (int64, error)
}

type SQLiteEventRepo struct {
	db *sql.DB
}

func NewSQLiteEventRepo(db *sql.DB) *SQLiteEventRepo {
	return &SQLiteEventRepo{db: db}
}

// Save stores events in one transaction, numbering them after the events
// already stored for requestID.
func (r *SQLiteEventRepo) Save(requestID string, events []event.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var next int
	err = tx.QueryRow("SELECT COALESCE(MAX(seq), -1) + 1 FROM events WHERE request_id = ?", requestID).Scan(&next)
	if err != nil {
		return fmt.Errorf("next seq: %w", err)
	}

	now := time.Now().UnixMilli()
	for i, e := range events {
		path, details, err := encodeEvent(e)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO events (id, request_id, seq, type, path, message, code, details, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, ulid.Make().String(), requestID, next+i, int(e.Type), path, e.Message, e.Code, details, now)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit events: %w", err)
	}
	return nil
}

func encodeEvent(e event.Event) (path, details sql.NullString, err error) {
	if len(e.Path) > 0 {
		b, err := json.Marshal(e.Path)
		if err != nil {
			return path, details, fmt.Errorf("marshal path: %w", err)
		}
		path = sql.NullString{String: string(b), Valid: true}
	}
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return path, details, fmt.Errorf("marshal details: %w", err)
		}
		details = sql.NullString{String: string(b), Valid: true}
	}
	return path, details, nil
}

// List returns matching events, oldest request first and in logged order
// within a request.
func (r *SQLiteEventRepo) List(q EventQuery) ([]*StoredEvent, error) {
	var (
		where []string
		args  []any
	)
	if q.RequestID != "" {
		where = append(where, "request_id = ?")
		args = append(args, q.RequestID)
	}
	if q.Mask != event.MaskNone && q.Mask != event.MaskAll {
		where = append(where, "(type & ?) != 0")
		args = append(args, int(q.Mask))
	}

	query := "SELECT id, request_id, seq, type, path, message, code, details, created_at FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at ASC, request_id ASC, seq ASC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []*StoredEvent
	for rows.Next() {
		se := &StoredEvent{}
		var typ int
		var path, details sql.NullString
		err := rows.Scan(&se.ID, &se.RequestID, &se.Seq, &typ, &path, &se.Event.Message, &se.Event.Code, &details, &se.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		se.Event.Type = event.Type(typ)
		if path.Valid {
			if err := json.Unmarshal([]byte(path.String), &se.Event.Path); err != nil {
				return nil, fmt.Errorf("unmarshal path: %w", err)
			}
		}
		if details.Valid {
			if err := json.Unmarshal([]byte(details.String), &se.Event.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

func (r *SQLiteEventRepo) Prune(olderThan time.Time) (int64, error) {
	res, err := r.db.Exec("DELETE FROM events WHERE created_at < ?", olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return res.RowsAffected()
}

// EventLog is an event.Log that persists every accepted event under one
// request ID. Each Log call is stored atomically.
type EventLog struct {
	repo      EventRepo
	requestID string
	mask      event.Mask
}

// NewEventLog returns a log writing to repo. An empty requestID gets a fresh
// ULID.
func NewEventLog(repo EventRepo, requestID string, mask event.Mask) *EventLog {
	if requestID == "" {
		requestID = ulid.Make().String()
	}
	return &EventLog{repo: repo, requestID: requestID, mask: mask}
}

func (l *EventLog) RequestID() string {
	return l.requestID
}

func (l *EventLog) Mask() event.Mask {
	return l.mask
}

func (l *EventLog) Log(events ...event.Event) error {
	accepted, err := event.Accept(events, l.mask)
	if err != nil {
		return err
	}
	return l.repo.Save(l.requestID, accepted)
}
