package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	StatusFired  = "fired"
	StatusFailed = "failed"
)

// ErrDuplicate is returned by Record when the schedule already has a firing
// for that minute.
var ErrDuplicate = errors.New("firing already recorded")

// fixed width so text ordering matches time ordering
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Firing is one matched minute of a schedule.
type Firing struct {
	ID           string    `json:"id"`
	Schedule     string    `json:"schedule"`
	Expression   string    `json:"expression"`
	ScheduledFor time.Time `json:"scheduled_for"`
	FiredAt      time.Time `json:"fired_at"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
}

// EnsureSchema creates tables if they don't exist.
func EnsureSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS firings (
  id TEXT PRIMARY KEY,
  schedule TEXT NOT NULL,
  expression TEXT NOT NULL,
  scheduled_for TEXT NOT NULL,
  fired_at TEXT NOT NULL,
  status TEXT NOT NULL CHECK(status IN ('fired','failed')),
  error TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_firings_minute ON firings(schedule, scheduled_for);
CREATE INDEX IF NOT EXISTS idx_firings_fired_at ON firings(fired_at DESC);
`
	_, err := db.Exec(schema)
	return err
}

type Store struct{ db *sql.DB }

// Open opens (creating if needed) the SQLite history database at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=rwc&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite single writer

	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record stores f and returns its ID, generating one when f.ID is empty.
func (s *Store) Record(ctx context.Context, f Firing) (string, error) {
	id := f.ID
	if id == "" {
		id = "fir_" + uuid.NewString()
	}
	if f.Status == "" {
		f.Status = StatusFired
	}
	if f.FiredAt.IsZero() {
		f.FiredAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO firings (id, schedule, expression, scheduled_for, fired_at, status, error)
VALUES (?,?,?,?,?,?,?)
ON CONFLICT(schedule, scheduled_for) DO NOTHING`,
		id, f.Schedule, f.Expression,
		f.ScheduledFor.UTC().Format(timeLayout), f.FiredAt.UTC().Format(timeLayout),
		f.Status, f.Error)
	if err != nil {
		return "", fmt.Errorf("insert firing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("insert firing: %w", err)
	}
	if n == 0 {
		return "", ErrDuplicate
	}
	return id, nil
}

// MarkFailed records an error against an already stored firing.
func (s *Store) MarkFailed(ctx context.Context, id, msg string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE firings SET status = ?, error = ? WHERE id = ?`, StatusFailed, msg, id)
	if err != nil {
		return fmt.Errorf("update firing %s: %w", id, err)
	}
	return nil
}

// ListRecent returns up to limit firings, newest first. An empty schedule
// lists every schedule.
func (s *Store) ListRecent(ctx context.Context, schedule string, limit int) ([]Firing, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, schedule, expression, scheduled_for, fired_at, status, error FROM firings`
	args := []any{}
	if schedule != "" {
		query += ` WHERE schedule = ?`
		args = append(args, schedule)
	}
	query += ` ORDER BY scheduled_for DESC, fired_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list firings: %w", err)
	}
	defer rows.Close()

	out := []Firing{}
	for rows.Next() {
		f, err := scanFiring(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// LastFired returns the most recent scheduled minute recorded per schedule.
func (s *Store) LastFired(ctx context.Context) (map[string]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT schedule, MAX(scheduled_for) FROM firings GROUP BY schedule`)
	if err != nil {
		return nil, fmt.Errorf("last firings: %w", err)
	}
	defer rows.Close()

	out := map[string]time.Time{}
	for rows.Next() {
		var name, ts string
		if err := rows.Scan(&name, &ts); err != nil {
			return nil, fmt.Errorf("scan last firing: %w", err)
		}
		t, err := time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse scheduled_for %q: %w", ts, err)
		}
		out[name] = t
	}
	return out, rows.Err()
}

func scanFiring(rows *sql.Rows) (Firing, error) {
	var f Firing
	var scheduledFor, firedAt string
	if err := rows.Scan(&f.ID, &f.Schedule, &f.Expression, &scheduledFor, &firedAt, &f.Status, &f.Error); err != nil {
		return Firing{}, fmt.Errorf("scan firing: %w", err)
	}

	var err error
	if f.ScheduledFor, err = time.Parse(timeLayout, scheduledFor); err != nil {
		return Firing{}, fmt.Errorf("parse scheduled_for %q: %w", scheduledFor, err)
	}
	if f.FiredAt, err = time.Parse(timeLayout, firedAt); err != nil {
		return Firing{}, fmt.Errorf("parse fired_at %q: %w", firedAt, err)
	}
	return f, nil
}
