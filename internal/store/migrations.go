package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema holds the DDL for every gosched table. Statements are idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		instance    TEXT NOT NULL,
		kind        TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL,
		objective   INTEGER NOT NULL DEFAULT 0,
		limited     INTEGER NOT NULL DEFAULT 0,
		elapsed_us  INTEGER NOT NULL DEFAULT 0,
		nodes       INTEGER NOT NULL DEFAULT 0,
		intervals   TEXT NOT NULL DEFAULT '[]',
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_instance ON runs(instance)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
