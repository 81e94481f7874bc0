// Package duck connects the query engine to an embedded DuckDB database.
//
// A DB implements query.Connector: each engine Update gets its own
// *sql.Conn from the pool and returns it when done. Databases opened on a
// file keep the validations catalog (see Bootstrap); "" opens an in-memory
// database, which is what tests use.
package duck

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/hugr-lab/lakeview/internal/runctx"
	"github.com/hugr-lab/lakeview/query"
)

// ErrNoParquetFiles is returned by ParquetTable for an empty file list.
var ErrNoParquetFiles = errors.New("no parquet files")

// DB is an open DuckDB database.
type DB struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (or creates) the database at path and checks it responds.
// An empty path opens an in-memory database. A nil logger uses
// slog.Default().
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb %q: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to duckdb %q: %w", path, err)
	}

	logger.Debug("Opened DuckDB database", "path", path)
	return &DB{db: db, path: path, logger: logger}, nil
}

// Close closes the database. Connections handed out by Conn must be closed
// first.
func (d *DB) Close() error {
	return d.db.Close()
}

// Path returns the database file path, "" for in-memory databases.
func (d *DB) Path() string { return d.path }

// SQL exposes the underlying pool for callers needing database/sql
// directly.
func (d *DB) SQL() *sql.DB { return d.db }

// Conn hands out a dedicated connection. It implements query.Connector.
func (d *DB) Conn(ctx context.Context) (query.Conn, error) {
	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire duckdb connection: %w", err)
	}
	return &conn{conn: c, logger: d.logger}, nil
}

type conn struct {
	conn   *sql.Conn
	logger *slog.Logger
}

// Query runs text and materializes every row. Values are the driver's
// native Go types (int64, float64, string, bool, time.Time, []any for
// lists, map[string]any for structs).
func (c *conn) Query(ctx context.Context, text string) (*query.Result, error) {
	runctx.Logger(ctx, c.logger).Debug("Executing query", "query", text)

	rows, err := c.conn.QueryContext(ctx, text)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scan(rows)
}

func (c *conn) Close() error {
	return c.conn.Close()
}

func scan(rows *sql.Rows) (*query.Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	res := &query.Result{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(res.Rows), err)
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
