package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource/mssql"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource/mysql"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource/sqlite"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
)

// OpenForMigrations opens a dedicated database/sql handle for RunMigrations.
// It returns the canonical dialect name with the handle.
func OpenForMigrations(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, string, error) {
	if cfg.TablePrefix != "" {
		return nil, "", fmt.Errorf("migrations create unprefixed tables; unset table_prefix (%q) to migrate", cfg.TablePrefix)
	}
	m := cfg.ConnectionMap()

	var (
		db      *sql.DB
		dialect string
		err     error
	)
	switch cfg.Type {
	case "mysql", "mariadb":
		dialect = "mysql"
		var c *mysql.Config
		if c, err = mysql.FromMap(m); err == nil {
			db, err = mysql.OpenDB(c, true)
		}
	case "postgres", "postgresql":
		dialect = "postgres"
		var c *postgres.Config
		if c, err = postgres.FromMap(m); err == nil {
			db, err = postgres.OpenDB(c)
		}
	case "sqlite", "sqlite3":
		dialect = "sqlite"
		var c *sqlite.Config
		if c, err = sqlite.FromMap(m); err == nil {
			db, err = sqlite.Open(ctx, c)
		}
	case "sqlserver", "mssql":
		dialect = "sqlserver"
		var c *mssql.Config
		if c, err = mssql.FromMap(m); err == nil {
			db, err = mssql.OpenDB(c)
		}
	default:
		return nil, "", fmt.Errorf("%w: %q", apperrors.ErrUnsupportedDialect, cfg.Type)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s for migrations: %w", dialect, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}
	return db, dialect, nil
}
