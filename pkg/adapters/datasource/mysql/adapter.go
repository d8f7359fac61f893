package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource"
)

// NewQueryExecutor opens a MySQL pool and verifies it with a ping.
func NewQueryExecutor(ctx context.Context, cfg *Config, logger *zap.Logger) (*datasource.SQLExecutor, error) {
	db, err := OpenDB(cfg, false)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	return datasource.NewSQLExecutor(db, "mysql", cfg.MaxConnections, logger), nil
}

// OpenDB opens a database/sql handle. Migrations need multiStatements; the
// query executor never does.
func OpenDB(cfg *Config, multiStatements bool) (*sql.DB, error) {
	db, err := sql.Open("mysql", buildDSN(cfg, multiStatements))
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}
	return db, nil
}
