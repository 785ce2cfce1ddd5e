package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

const RunPending = "pending"

// Run is one dispatch of a chain. Its ID doubles as the request ID of the
// events logged while it ran.
type Run struct {
	ID        string
	Chain     string
	StartedAt int64
	EndedAt   int64
	Outcome   string
}

type RunRepo interface {
	Start(chain string) (*Run, error)
	Get(id string) (*Run, error)
	Finish(id string, outcome string) error
	ListRecent(limit int) ([]*Run, error)
}

type SQLiteRunRepo struct {
	db *sql.DB
}

func NewSQLiteRunRepo(db *sql.DB) *SQLiteRunRepo {
	return &SQLiteRunRepo{db: db}
}

func (r *SQLiteRunRepo) Start(chain string) (*Run, error) {
	run := &Run{
		ID:        ulid.Make().String(),
		Chain:     chain,
		StartedAt: time.Now().UnixMilli(),
		Outcome:   RunPending,
	}

	_, err := r.db.Exec(`
		INSERT INTO runs (id, chain, started_at, outcome)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.Chain, run.StartedAt, run.Outcome)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

func (r *SQLiteRunRepo) Get(id string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT id, chain, started_at, ended_at, outcome
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	return run, nil
}

func (r *SQLiteRunRepo) Finish(id string, outcome string) error {
	res, err := r.db.Exec(`
		UPDATE runs SET outcome = ?, ended_at = ? WHERE id = ?
	`, outcome, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

func (r *SQLiteRunRepo) ListRecent(limit int) ([]*Run, error) {
	rows, err := r.db.Query(`
		SELECT id, chain, started_at, ended_at, outcome
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var endedAt sql.NullInt64
	if err := s.Scan(&run.ID, &run.Chain, &run.StartedAt, &endedAt, &run.Outcome); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		run.EndedAt = endedAt.Int64
	}
	return run, nil
}
