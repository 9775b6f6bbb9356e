package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens or creates the database at dbPath. ":memory:" gives
// a private in-memory database.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// CreateRun inserts r. An empty ID is filled with a fresh one and a zero
// CreatedAt with the current time.
func (s *SQLiteStore) CreateRun(ctx context.Context, r *Run) error {
	if r.ID == "" {
		r.ID = "run_" + uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	s.logger.Debug("sql", "op", "insert", "table", "runs", "id", r.ID)

	ivs := r.Intervals
	if ivs == nil {
		ivs = []Assignment{}
	}
	intervalsJSON, err := json.Marshal(ivs)
	if err != nil {
		return fmt.Errorf("marshal intervals: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, instance, kind, status, objective, limited, elapsed_us, nodes, intervals, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Instance, r.Kind, r.Status, r.Objective, boolInt(r.Limited),
		r.Elapsed.Microseconds(), r.Nodes, string(intervalsJSON),
		r.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

const runColumns = `id, instance, kind, status, objective, limited, elapsed_us, nodes, intervals, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var r Run
	var limited int
	var elapsed int64
	var intervalsJSON, createdAt string
	if err := sc.Scan(&r.ID, &r.Instance, &r.Kind, &r.Status, &r.Objective, &limited,
		&elapsed, &r.Nodes, &intervalsJSON, &createdAt); err != nil {
		return nil, err
	}
	r.Limited = limited != 0
	r.Elapsed = time.Duration(elapsed) * time.Microsecond
	if err := json.Unmarshal([]byte(intervalsJSON), &r.Intervals); err != nil {
		return nil, fmt.Errorf("unmarshal intervals: %w", err)
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &r, nil
}

// GetRun looks up a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.logger.Debug("sql", "op", "select", "table", "runs", "id", id)

	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// ListRuns returns runs newest first together with the unpaged total.
func (s *SQLiteStore) ListRuns(ctx context.Context, opts ListOptions) ([]*Run, int, error) {
	opts.Clamp()
	s.logger.Debug("sql", "op", "list", "table", "runs", "instance", opts.Instance, "limit", opts.Limit, "offset", opts.Offset)

	where, args := "", []any{}
	if opts.Instance != "" {
		where = ` WHERE instance = ?`
		args = append(args, opts.Instance)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs`+where+` ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, r)
	}
	return runs, total, rows.Err()
}

// BestRun returns the solved run of instance with the smallest objective.
// Ties go to the earliest run.
func (s *SQLiteStore) BestRun(ctx context.Context, instance string) (*Run, error) {
	s.logger.Debug("sql", "op", "best", "table", "runs", "instance", instance)

	r, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs
		 WHERE instance = ? AND status IN ('OPTIMAL', 'SATISFIABLE')
		 ORDER BY objective ASC, created_at ASC LIMIT 1`, instance))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// DeleteRun removes a run. Deleting an unknown id is not an error.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "runs", "id", id)
	_, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
