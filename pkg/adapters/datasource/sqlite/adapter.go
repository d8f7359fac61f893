// Package sqlite runs page lists against a SQLite wiki database through
// modernc.org/sqlite. It registers the REGEXP function the dialect emits.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"sync"

	"go.uber.org/zap"
	"modernc.org/sqlite"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/adapters/datasource"
)

// Config contains SQLite options.
type Config struct {
	Path           string
	ReadOnly       bool
	MaxConnections int
}

// FromMap creates a Config from a generic config map.
func FromMap(m map[string]any) (*Config, error) {
	cfg := &Config{}
	path, _ := m["path"].(string)
	if path == "" {
		path, _ = m["database"].(string)
	}
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	cfg.Path = path
	cfg.ReadOnly, _ = m["read_only"].(bool)
	if n, ok := m["max_connections"].(int); ok {
		cfg.MaxConnections = n
	}
	return cfg, nil
}

// IsMemory reports whether the database lives only inside the process.
func (c *Config) IsMemory() bool {
	return c.Path == ":memory:"
}

func (c *Config) dsn() string {
	dsn := "file:" + c.Path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if c.ReadOnly {
		dsn += "&mode=ro"
	}
	return dsn
}

var (
	registerOnce sync.Once
	registerErr  error
	patterns     sync.Map // string -> *regexp.Regexp
)

// RegisterFunctions installs regexp(pattern, value) so that "x REGEXP p" works.
func RegisterFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction("regexp", 2, regexpFunc)
	})
	return registerErr
}

func regexpFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if args[0] == nil || args[1] == nil {
		return nil, nil
	}
	pattern := asString(args[0])
	re, err := compile(pattern)
	if err != nil {
		return nil, err
	}
	if re.MatchString(asString(args[1])) {
		return int64(1), nil
	}
	return int64(0), nil
}

func compile(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression %q: %w", pattern, err)
	}
	patterns.Store(pattern, re)
	return re, nil
}

func asString(v driver.Value) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprint(s)
	}
}

// Open opens the database with the wiki functions registered. Callers that
// need the raw handle (migrations, fixtures) use this.
func Open(ctx context.Context, cfg *Config) (*sql.DB, error) {
	if err := RegisterFunctions(); err != nil {
		return nil, fmt.Errorf("register sqlite functions: %w", err)
	}

	db, err := sql.Open("sqlite", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}
	return db, nil
}

// NewQueryExecutor opens the database and wraps it in an executor.
func NewQueryExecutor(ctx context.Context, cfg *Config, logger *zap.Logger) (*datasource.SQLExecutor, error) {
	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConnections
	if cfg.IsMemory() {
		// every connection to :memory: is a separate database
		maxConns = 1
	}
	return datasource.NewSQLExecutor(db, "sqlite", maxConns, logger), nil
}

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        "sqlite",
			DisplayName: "SQLite",
			Description: "Single-file wiki databases and local testing",
		},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.QueryExecutor, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			return NewQueryExecutor(ctx, cfg, logger)
		},
	})
}
