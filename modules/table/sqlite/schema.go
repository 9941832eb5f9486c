package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// migrate creates the bookkeeping schema. All DDL uses IF NOT EXISTS,
// making migration idempotent.
func migrate(db *sql.DB) error {
	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("table: create schema_version: %w", err)
	}

	var current int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("table: read schema version: %w", err)
	}
	if current >= schemaVersion {
		return nil
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS user_tables (
		name    TEXT PRIMARY KEY,
		columns TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("table: create user_tables: %w", err)
	}

	if _, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("table: record schema version: %w", err)
	}
	return nil
}
