package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver
)

// MaxLimit bounds History and Recent page sizes.
const MaxLimit = 1000

const schemaSQL = `
CREATE TABLE IF NOT EXISTS predictions (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	student_id       TEXT NOT NULL DEFAULT '',
	model_id         TEXT NOT NULL,
	attendance       REAL NOT NULL,
	study_hours      REAL NOT NULL,
	previous_marks   REAL NOT NULL,
	assignment_score REAL NOT NULL,
	result           TEXT NOT NULL,
	probability      REAL NOT NULL,
	created_at       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_student ON predictions(student_id, id);
`

const selectColumns = `id, student_id, model_id, attendance, study_hours, previous_marks,
	assignment_score, result, probability, created_at`

// SQLiteStore is a Store backed by a sqlite database file.
type SQLiteStore struct {
	db           *sql.DB
	busyTimeout  time.Duration
	maxOpenConns int
	now          func() time.Time
	closed       atomic.Bool
}

// Open creates or opens the history database at path.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		busyTimeout:  5 * time.Second,
		maxOpenConns: 4,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("repository.open: %w", err)
	}
	dsn := fmt.Sprintf("%s?_busy_timeout=%d&_journal_mode=WAL", path, s.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("repository.open: %w", err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository.open: create schema: %w", err)
	}
	s.db = db
	return s, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, e Entry) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO predictions
		(student_id, model_id, attendance, study_hours, previous_marks, assignment_score, result, probability, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.StudentID, e.ModelID, e.Attendance, e.StudyHours, e.PreviousMarks, e.AssignmentScore,
		e.Result, e.Probability, e.CreatedAt.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("repository.save: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("repository.save: %w", err)
	}
	return id, nil
}

// History implements Store.
func (s *SQLiteStore) History(ctx context.Context, studentID string, limit int) ([]Entry, error) {
	if err := s.check(limit); err != nil {
		return nil, err
	}
	entries, err := s.query(ctx, `SELECT `+selectColumns+` FROM predictions
		WHERE student_id = ? ORDER BY id DESC LIMIT ?`, studentID, limit)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, studentID)
	}
	return entries, nil
}

// Recent implements Store.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if err := s.check(limit); err != nil {
		return nil, err
	}
	return s.query(ctx, `SELECT `+selectColumns+` FROM predictions ORDER BY id DESC LIMIT ?`, limit)
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM predictions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repository.count: %w", err)
	}
	return n, nil
}

// Close implements Store. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) check(limit int) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if limit <= 0 || limit > MaxLimit {
		return fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidLimit, limit, MaxLimit)
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.ID, &e.StudentID, &e.ModelID, &e.Attendance, &e.StudyHours,
			&e.PreviousMarks, &e.AssignmentScore, &e.Result, &e.Probability, &created); err != nil {
			return nil, fmt.Errorf("repository.scan: %w", err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("repository.query: %w", err)
	}
	return out, nil
}
