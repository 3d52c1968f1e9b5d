// Package manifest records the outcome of every query in a processing run so
// callers can check a run for completeness after the fact.
package manifest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"molgraph/internal/core/errors"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Prefix     string
	Workers    int
	Combine    bool
	QueryCount int
	Outputs    []string
}

type Outcome struct {
	QueryID    string
	Kind       string
	Status     Status
	ErrorCode  string
	Message    string
	Worker     int
	Duration   time.Duration
	Output     string
	RecordedAt time.Time
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, errors.New(errors.CodeValidationError, "manifest path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, errors.Newf(errors.CodeValidationError, "manifest path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create manifest directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite manifest %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite manifest %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize manifest schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// BeginRun inserts run, assigning a new id and start time when unset. An id
// that is already recorded is a conflict.
func (s *Store) BeginRun(run Run) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	err := s.withRetry("begin run", func() error {
		_, err := s.db.Exec(`
INSERT INTO runs (run_id, started_at_utc, prefix, workers, combine, query_count)
VALUES (?, ?, ?, ?, ?, ?)
`, run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), run.Prefix, run.Workers, boolInt(run.Combine), run.QueryCount)
		return err
	})
	if err != nil {
		if isUniqueError(err) {
			return Run{}, errors.Wrapf(err, errors.CodeConflict, "run %q already recorded", run.ID)
		}
		return Run{}, err
	}
	return run, nil
}

// Record stores outcomes for runID in one transaction. Recording a query id
// twice keeps the latest outcome.
func (s *Store) Record(runID string, outcomes ...Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("record outcomes", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			if o.RecordedAt.IsZero() {
				o.RecordedAt = time.Now().UTC()
			}
			if _, err := tx.Exec(`
INSERT INTO outcomes (run_id, query_id, query_kind, status, error_code, error_message, worker, duration_ms, output, recorded_at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, query_id) DO UPDATE SET
  query_kind=excluded.query_kind,
  status=excluded.status,
  error_code=excluded.error_code,
  error_message=excluded.error_message,
  worker=excluded.worker,
  duration_ms=excluded.duration_ms,
  output=excluded.output,
  recorded_at_utc=excluded.recorded_at_utc
`, runID, o.QueryID, o.Kind, string(o.Status), o.ErrorCode, o.Message, o.Worker, o.Duration.Milliseconds(), o.Output,
				o.RecordedAt.UTC().Format(time.RFC3339Nano)); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// FinishRun stamps the run with its finish time and output files.
func (s *Store) FinishRun(runID string, outputs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("finish run", func() error {
		res, err := s.db.Exec(`UPDATE runs SET finished_at_utc = ?, outputs = ? WHERE run_id = ?`,
			time.Now().UTC().Format(time.RFC3339Nano), strings.Join(outputs, "\n"), runID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errors.Newf(errors.CodeNotFound, "run %q not found", runID)
		}
		return nil
	})
}

func (s *Store) LoadRun(runID string) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		run                   Run
		startedRaw, finishRaw string
		combine               int
		outputs               string
	)
	err := s.db.QueryRow(`
SELECT run_id, started_at_utc, finished_at_utc, prefix, workers, combine, query_count, outputs
FROM runs WHERE run_id = ?
`, runID).Scan(&run.ID, &startedRaw, &finishRaw, &run.Prefix, &run.Workers, &combine, &run.QueryCount, &outputs)
	if err == sql.ErrNoRows {
		return Run{}, errors.Newf(errors.CodeNotFound, "run %q not found", runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("load run %q: %w", runID, err)
	}
	run.Combine = combine != 0
	if run.StartedAt, err = parseTime(startedRaw); err != nil {
		return Run{}, err
	}
	if run.FinishedAt, err = parseTime(finishRaw); err != nil {
		return Run{}, err
	}
	if outputs != "" {
		run.Outputs = strings.Split(outputs, "\n")
	}
	return run, nil
}

// Outcomes lists the outcomes of runID ordered by query id, optionally
// restricted to one status.
func (s *Store) Outcomes(runID string, status Status) ([]Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT query_id, query_kind, status, error_code, error_message, worker, duration_ms, output, recorded_at_utc
FROM outcomes WHERE run_id = ?`
	args := []any{runID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY query_id ASC"

	var rows *sql.Rows
	err := s.withRetry("load outcomes", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Outcome, 0)
	for rows.Next() {
		var (
			o          Outcome
			statusRaw  string
			durationMS int64
			recorded   string
		)
		if err := rows.Scan(&o.QueryID, &o.Kind, &statusRaw, &o.ErrorCode, &o.Message, &o.Worker, &durationMS, &o.Output, &recorded); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		o.Status = Status(statusRaw)
		o.Duration = time.Duration(durationMS) * time.Millisecond
		if o.RecordedAt, err = parseTime(recorded); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}
	return out, nil
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return ts.UTC(), nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	if _, ok := lastErr.(*errors.DomainError); ok {
		return lastErr
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isUniqueError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
