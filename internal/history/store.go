// Package history persists deploy runs and their step results.
package history

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"deployctl/internal/database"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// Store reads and writes deploy run history.
type Store struct {
	db *database.DB
}

// NewStore returns a Store over the given database.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// CreateRun records a new pending run and returns it.
func (s *Store) CreateRun(trigger Trigger) (*Run, error) {
	id := uuid.New().String()

	_, err := s.db.Exec(
		// "trigger" is a reserved word in sqlite and must stay quoted.
		`INSERT INTO runs (id, "trigger", status) VALUES (?, ?, ?)`,
		id, trigger, StatusPending,
	)
	if err != nil {
		return nil, err
	}

	return s.GetRun(id)
}

// StartRun marks the run as running.
func (s *Store) StartRun(id string) error {
	_, err := s.db.Exec(
		"UPDATE runs SET status = ?, started_at = ? WHERE id = ?",
		StatusRunning, time.Now(), id,
	)
	return err
}

// FinishRun records the terminal state of a run. snapshot and revision
// may be empty when the corresponding steps never completed.
func (s *Store) FinishRun(id string, status RunStatus, snapshot, revision, errMsg string) error {
	_, err := s.db.Exec(
		"UPDATE runs SET status = ?, snapshot = ?, revision = ?, error = ?, finished_at = ? WHERE id = ?",
		status, snapshot, revision, errMsg, time.Now(), id,
	)
	return err
}

// RecordStep appends one step result to a run.
func (s *Store) RecordStep(runID, name, status string, exitCode *int, output string, startedAt, finishedAt time.Time) error {
	_, err := s.db.Exec(
		"INSERT INTO run_steps (run_id, name, status, exit_code, output, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		runID, name, status, exitCode, output, startedAt, finishedAt,
	)
	return err
}

// GetRun fetches one run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, "trigger", status, snapshot, revision, error, started_at, finished_at, created_at FROM runs WHERE id = ?`,
		id,
	)
	return scanRun(row)
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, "trigger", status, snapshot, revision, error, started_at, finished_at, created_at FROM runs ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ListSteps returns a run's steps in execution order.
func (s *Store) ListSteps(runID string) ([]Step, error) {
	rows, err := s.db.Query(
		"SELECT id, run_id, name, status, exit_code, output, started_at, finished_at FROM run_steps WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []Step
	for rows.Next() {
		var step Step
		var exitCode sql.NullInt64
		var output sql.NullString
		var startedAt, finishedAt sql.NullTime

		if err := rows.Scan(
			&step.ID, &step.RunID, &step.Name, &step.Status,
			&exitCode, &output, &startedAt, &finishedAt,
		); err != nil {
			return nil, err
		}

		if exitCode.Valid {
			code := int(exitCode.Int64)
			step.ExitCode = &code
		}
		if output.Valid {
			step.Output = output.String
		}
		if startedAt.Valid {
			step.StartedAt = &startedAt.Time
		}
		if finishedAt.Valid {
			step.FinishedAt = &finishedAt.Time
		}

		steps = append(steps, step)
	}
	return steps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var snapshot, revision, errMsg sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(
		&run.ID, &run.Trigger, &run.Status,
		&snapshot, &revision, &errMsg,
		&startedAt, &finishedAt, &run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	if snapshot.Valid {
		run.Snapshot = snapshot.String
	}
	if revision.Valid {
		run.Revision = revision.String
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return &run, nil
}
