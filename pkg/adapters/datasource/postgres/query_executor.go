package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/logging"
)

// QueryExecutor provides PostgreSQL query execution.
type QueryExecutor struct {
	pool     *pgxpool.Pool
	database string
	logger   *zap.Logger
}

// NewQueryExecutor opens a pool and returns an executor that owns it.
func NewQueryExecutor(ctx context.Context, cfg *Config, logger *zap.Logger) (*QueryExecutor, error) {
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewQueryExecutorFromPool(pool, cfg.Database, logger), nil
}

// NewQueryExecutorFromPool wraps an existing pool, e.g. a test container's.
func NewQueryExecutorFromPool(pool *pgxpool.Pool, database string, logger *zap.Logger) *QueryExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryExecutor{pool: pool, database: database, logger: logger}
}

// Query runs a SELECT statement and streams its rows.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string) (datasource.RowCursor, error) {
	e.logger.Debug("Executing query", zap.String("sql", logging.SanitizeQuery(sqlQuery)))

	rows, err := e.pool.Query(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = fd.Name
	}
	return &cursor{rows: rows, columns: columns}, nil
}

// Dialect returns "postgres".
func (e *QueryExecutor) Dialect() string {
	return "postgres"
}

// Pool returns the underlying pool.
func (e *QueryExecutor) Pool() *pgxpool.Pool {
	return e.pool
}

// Close closes the pool.
func (e *QueryExecutor) Close() error {
	e.pool.Close()
	return nil
}

var _ datasource.QueryExecutor = (*QueryExecutor)(nil)

type cursor struct {
	rows    pgx.Rows
	columns []string
	err     error
}

func (c *cursor) Columns() []string { return c.columns }

func (c *cursor) Next() bool {
	return c.rows.Next()
}

func (c *cursor) Row() (map[string]any, error) {
	values, err := c.rows.Values()
	if err != nil {
		c.err = fmt.Errorf("failed to read row values: %w", err)
		return nil, c.err
	}
	return datasource.RowMap(c.columns, values), nil
}

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	if err := c.rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}
	return nil
}

func (c *cursor) Close() error {
	c.rows.Close()
	return nil
}
