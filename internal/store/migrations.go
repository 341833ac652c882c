package store

import (
	"context"
	"database/sql"
	"strings"
)

// schema contains the DDL for the cache tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tool_schemas (
		server       TEXT NOT NULL,
		tool_id      TEXT NOT NULL,
		tool_version TEXT NOT NULL DEFAULT '',
		history_id   TEXT NOT NULL DEFAULT '',
		context_hash TEXT NOT NULL DEFAULT '',
		name         TEXT NOT NULL DEFAULT '',
		schema_json  TEXT NOT NULL,
		fetched_at   TEXT NOT NULL,
		PRIMARY KEY (server, tool_id, tool_version, history_id, context_hash)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_tool_schemas_fetched_at ON tool_schemas(fetched_at)`,
}

// alterStatements add columns introduced after the first release.
var alterStatements = []struct {
	table    string
	column   string
	alterSQL string
}{
	{"tool_schemas", "size", `ALTER TABLE tool_schemas ADD COLUMN size INTEGER NOT NULL DEFAULT 0`},
}

// keyColumns are the primary key columns added after the first release.
// SQLite cannot change a primary key in place, and the table only holds
// refetchable schemas, so a table missing one of them is dropped.
var keyColumns = []string{"history_id"}

func migrate(ctx context.Context, db *sql.DB) error {
	if err := dropOutdatedCache(ctx, db, "tool_schemas"); err != nil {
		return err
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, alter := range alterStatements {
		if err := addColumnIfNotExists(ctx, db, alter.table, alter.column, alter.alterSQL); err != nil {
			return err
		}
	}
	return nil
}

func dropOutdatedCache(ctx context.Context, db *sql.DB, table string) error {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&n); err != nil || n == 0 {
		return err
	}
	for _, column := range keyColumns {
		exists, err := hasColumn(ctx, db, table, column)
		if err != nil {
			return err
		}
		if !exists {
			_, err := db.ExecContext(ctx, "DROP TABLE "+table)
			return err
		}
	}
	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(ctx context.Context, db *sql.DB, table, column, alterSQL string) error {
	exists, err := hasColumn(ctx, db, table, column)
	if err != nil || exists {
		return err
	}
	_, err = db.ExecContext(ctx, alterSQL)
	return err
}

func hasColumn(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if strings.EqualFold(name, column) {
			return true, nil
		}
	}
	return false, rows.Err()
}
