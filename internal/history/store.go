package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"zestsync/internal/config"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Record is one generation or download run.
type Record struct {
	ID         string
	Kind       string
	Video      string
	Language   string
	Output     string
	Status     Status
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Duration returns how long the run took, or zero while it is running.
func (r Record) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store persists run records.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

const recordColumns = "id, kind, video, language, output, status, error_message, started_at, finished_at"

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Start inserts a running record. An empty ID is replaced with a new UUID.
func (s *Store) Start(ctx context.Context, rec Record) (Record, error) {
	if strings.TrimSpace(rec.Kind) == "" || strings.TrimSpace(rec.Language) == "" {
		return Record{}, errors.New("history record requires kind and language")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = s.now()
	}
	rec.StartedAt = rec.StartedAt.UTC()
	rec.Status = StatusRunning
	rec.FinishedAt = nil
	rec.Error = ""

	err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, kind, video, language, output, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, nullableString(rec.Video), rec.Language, nullableString(rec.Output), rec.Status,
		rec.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert run: %w", err)
	}
	return rec, nil
}

// Finish closes out a running record. A nil runErr marks success.
func (s *Store) Finish(ctx context.Context, id, output string, runErr error) error {
	status := StatusSucceeded
	var message any
	if runErr != nil {
		status = StatusFailed
		message = runErr.Error()
	}
	finished := s.now().UTC().Format(time.RFC3339Nano)
	res, err := s.execResultWithRetry(ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ?, output = COALESCE(?, output)
         WHERE id = ? AND status = ?`,
		status, message, finished, nullableString(output), id, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// Get returns the record with id, or nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM runs WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.query(ctx, `SELECT `+recordColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
}

// ForVideo returns every record for video, newest first.
func (s *Store) ForVideo(ctx context.Context, video string) ([]Record, error) {
	return s.query(ctx, `SELECT `+recordColumns+` FROM runs WHERE video = ? ORDER BY started_at DESC, rowid DESC`, video)
}

// MarkInterrupted fails every running record. A run can only still be
// running at startup if the previous process died mid-task.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	res, err := s.execResultWithRetry(ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE status = ?`,
		StatusFailed, "interrupted: process exited before the task settled",
		s.now().UTC().Format(time.RFC3339Nano), StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes settled records that started before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execResultWithRetry(ctx,
		`DELETE FROM runs WHERE status != ? AND started_at < ?`,
		StatusRunning, cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}
