package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/galahad/internal/logging"
	"github.com/me/galahad/pkg/galaxy"
	"github.com/me/galahad/pkg/model"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements SchemaStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise see its own empty database.
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
		logger: logging.OrDiscard(logger).With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// GetSchema returns the cached schema for key, or nil if there is none.
func (s *SQLiteStore) GetSchema(ctx context.Context, key SchemaKey) (*CachedSchema, error) {
	s.logger.Debug("sql", "op", "select", "table", "tool_schemas", "tool", key.ToolID, "version", key.ToolVersion)

	var schemaJSON, fetchedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT schema_json, fetched_at FROM tool_schemas
		 WHERE server = ? AND tool_id = ? AND tool_version = ? AND history_id = ? AND context_hash = ?`,
		key.Server, key.ToolID, key.ToolVersion, key.HistoryID, key.ContextHash,
	).Scan(&schemaJSON, &fetchedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tool, err := galaxy.DecodeTool([]byte(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	cached := &CachedSchema{Key: key, Tool: tool}
	cached.FetchedAt, _ = time.Parse(timeLayout, fetchedAt)
	return cached, nil
}

// PutSchema stores tool under key, replacing any previous entry.
func (s *SQLiteStore) PutSchema(ctx context.Context, key SchemaKey, tool *galaxy.Tool) error {
	s.logger.Debug("sql", "op", "upsert", "table", "tool_schemas", "tool", key.ToolID, "version", key.ToolVersion)

	schemaJSON, err := json.Marshal(tool)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tool_schemas (server, tool_id, tool_version, history_id, context_hash, name, schema_json, size, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (server, tool_id, tool_version, history_id, context_hash) DO UPDATE SET
		   name = excluded.name,
		   schema_json = excluded.schema_json,
		   size = excluded.size,
		   fetched_at = excluded.fetched_at`,
		key.Server, key.ToolID, key.ToolVersion, key.HistoryID, key.ContextHash, tool.Name,
		string(schemaJSON), len(schemaJSON), time.Now().UTC().Format(timeLayout),
	)
	return err
}

// ListSchemas lists cached schemas, newest first.
func (s *SQLiteStore) ListSchemas(ctx context.Context, opts model.ListOptions) ([]model.SchemaEntry, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "tool_schemas", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	where := ""
	var args []any
	if q := strings.TrimSpace(opts.Query); q != "" {
		where = ` WHERE tool_id LIKE ? OR name LIKE ?`
		pattern := "%" + q + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tool_schemas`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT tool_id, tool_version, history_id, context_hash, name, size, fetched_at FROM tool_schemas`+where+
			` ORDER BY fetched_at DESC LIMIT ? OFFSET ?`,
		append(args, opts.Limit, opts.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []model.SchemaEntry{}
	for rows.Next() {
		var e model.SchemaEntry
		var fetchedAt string
		if err := rows.Scan(&e.ToolID, &e.ToolVersion, &e.HistoryID, &e.ContextHash, &e.Name, &e.Size, &fetchedAt); err != nil {
			return nil, 0, err
		}
		e.FetchedAt, _ = time.Parse(timeLayout, fetchedAt)
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// Purge deletes entries fetched before olderThan; a zero time deletes all.
func (s *SQLiteStore) Purge(ctx context.Context, olderThan time.Time) (int64, error) {
	s.logger.Debug("sql", "op", "delete", "table", "tool_schemas", "older_than", olderThan)

	var res sql.Result
	var err error
	if olderThan.IsZero() {
		res, err = s.db.ExecContext(ctx, `DELETE FROM tool_schemas`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM tool_schemas WHERE fetched_at < ?`,
			olderThan.UTC().Format(timeLayout))
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
