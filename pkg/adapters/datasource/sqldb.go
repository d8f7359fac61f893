package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/logging"
)

// DefaultMaxConnections bounds a pool when the configuration leaves it unset.
const DefaultMaxConnections = 10

// SQLExecutor runs queries through a database/sql pool. The mysql, sqlite
// and sqlserver adapters wrap their driver in it.
type SQLExecutor struct {
	db      *sql.DB
	dialect string
	logger  *zap.Logger
}

// NewSQLExecutor wraps db. maxConns <= 0 uses DefaultMaxConnections.
func NewSQLExecutor(db *sql.DB, dialect string, maxConns int, logger *zap.Logger) *SQLExecutor {
	if maxConns <= 0 {
		maxConns = DefaultMaxConnections
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &SQLExecutor{db: db, dialect: dialect, logger: logger}
}

// TestConnection verifies the database is reachable with valid credentials.
func (e *SQLExecutor) TestConnection(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := e.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// Query runs a SELECT statement and streams its rows.
func (e *SQLExecutor) Query(ctx context.Context, sqlQuery string) (RowCursor, error) {
	e.logger.Debug("Executing query", zap.String("sql", logging.SanitizeQuery(sqlQuery)))

	rows, err := e.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	return &sqlRowsCursor{rows: rows, columns: cols}, nil
}

// Dialect returns the SQL dialect name.
func (e *SQLExecutor) Dialect() string {
	return e.dialect
}

// DB returns the underlying pool, used by migrations.
func (e *SQLExecutor) DB() *sql.DB {
	return e.db
}

// Close closes the pool.
func (e *SQLExecutor) Close() error {
	return e.db.Close()
}

var _ QueryExecutor = (*SQLExecutor)(nil)

type sqlRowsCursor struct {
	rows    *sql.Rows
	columns []string
	err     error
}

func (c *sqlRowsCursor) Columns() []string { return c.columns }

func (c *sqlRowsCursor) Next() bool {
	return c.rows.Next()
}

func (c *sqlRowsCursor) Row() (map[string]any, error) {
	values := make([]any, len(c.columns))
	ptrs := make([]any, len(c.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = fmt.Errorf("failed to scan row: %w", err)
		return nil, c.err
	}
	return RowMap(c.columns, values), nil
}

func (c *sqlRowsCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}
	return nil
}

func (c *sqlRowsCursor) Close() error {
	return c.rows.Close()
}

// RowMap zips column names and values, converting []byte to string.
func RowMap(columns []string, values []any) map[string]any {
	row := make(map[string]any, len(columns))
	for i, col := range columns {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row
}

// SliceCursor is an in-memory RowCursor.
type SliceCursor struct {
	columns []string
	rows    []map[string]any
	pos     int
}

// NewSliceCursor returns a cursor over rows.
func NewSliceCursor(columns []string, rows []map[string]any) *SliceCursor {
	return &SliceCursor{columns: columns, rows: rows, pos: -1}
}

func (c *SliceCursor) Columns() []string { return c.columns }

func (c *SliceCursor) Next() bool {
	if c.pos+1 >= len(c.rows) {
		c.pos = len(c.rows)
		return false
	}
	c.pos++
	return true
}

func (c *SliceCursor) Row() (map[string]any, error) {
	if c.pos < 0 || c.pos >= len(c.rows) {
		return nil, fmt.Errorf("cursor is not positioned on a row")
	}
	return c.rows[c.pos], nil
}

func (c *SliceCursor) Err() error { return nil }

func (c *SliceCursor) Close() error { return nil }

var _ RowCursor = (*SliceCursor)(nil)
