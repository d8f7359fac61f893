package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the page list engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database holds the wiki database connection.
	Database DatabaseConfig `yaml:"database"`

	// PageList holds query guardrails.
	PageList PageListConfig `yaml:"pagelist"`

	// Wiki describes the hosting wiki (namespaces, links, time zone).
	Wiki WikiConfig `yaml:"wiki"`

	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig holds the wiki database configuration.
type DatabaseConfig struct {
	// Type selects the SQL dialect and driver: mysql, postgres, sqlite or sqlserver.
	Type           string `yaml:"type" env:"WIKI_DB_TYPE" env-default:"mysql"`
	Host           string `yaml:"host" env:"WIKI_DB_HOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"WIKI_DB_PORT" env-default:"0"`
	User           string `yaml:"user" env:"WIKI_DB_USER" env-default:"wikiuser"`
	Password       string `yaml:"-" env:"WIKI_DB_PASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"WIKI_DB_NAME" env-default:"wikidb"`
	Path           string `yaml:"path" env:"WIKI_DB_PATH" env-default:""` // sqlite only
	SSLMode        string `yaml:"ssl_mode" env:"WIKI_DB_SSLMODE" env-default:"disable"`
	TablePrefix    string `yaml:"table_prefix" env:"WIKI_DB_PREFIX" env-default:""`
	MaxConnections int32  `yaml:"max_connections" env:"WIKI_DB_MAX_CONNECTIONS" env-default:"10"`
	// ConnectRetries bounds the retries of transient connection failures at startup.
	ConnectRetries int    `yaml:"connect_retries" env:"WIKI_DB_CONNECT_RETRIES" env-default:"3"`
}

// PageListConfig holds the admission-control limits applied to every evaluation.
type PageListConfig struct {
	MaxCategoryCount         int  `yaml:"max_category_count" env:"PAGELIST_MAX_CATEGORY_COUNT" env-default:"4"`
	MinCategoryCount         int  `yaml:"min_category_count" env:"PAGELIST_MIN_CATEGORY_COUNT" env-default:"0"`
	AllowUnlimitedCategories bool `yaml:"allow_unlimited_categories" env:"PAGELIST_ALLOW_UNLIMITED_CATEGORIES" env-default:"false"`
	MaxResultCount           int  `yaml:"max_result_count" env:"PAGELIST_MAX_RESULT_COUNT" env-default:"500"`
	AllowUnlimitedResults    bool `yaml:"allow_unlimited_results" env:"PAGELIST_ALLOW_UNLIMITED_RESULTS" env-default:"false"`
	// MaxMaterializedRows bounds the records built from one cursor regardless of LIMIT.
	MaxMaterializedRows int `yaml:"max_materialized_rows" env:"PAGELIST_MAX_MATERIALIZED_ROWS" env-default:"10000"`

	// AllowedNamespacesStr is a comma-separated list of namespace names or ids. Empty allows all.
	AllowedNamespacesStr string `yaml:"allowed_namespaces" env:"PAGELIST_ALLOWED_NAMESPACES" env-default:""`
	// NonIncludableNamespacesStr lists namespace ids that are always excluded.
	NonIncludableNamespacesStr string `yaml:"non_includable_namespaces" env:"PAGELIST_NON_INCLUDABLE_NAMESPACES" env-default:""`

	AllowedNamespaces       []string `yaml:"-"`
	NonIncludableNamespaces []int    `yaml:"-"`

	QueryTimeoutSeconds       int  `yaml:"query_timeout_seconds" env:"PAGELIST_QUERY_TIMEOUT_SECONDS" env-default:"30"`
	RunFromProtectedPagesOnly bool `yaml:"run_from_protected_pages_only" env:"PAGELIST_PROTECTED_ONLY" env-default:"false"`
}

// QueryTimeout returns the per-evaluation execution budget.
func (c *PageListConfig) QueryTimeout() time.Duration {
	if c.QueryTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// WikiConfig describes the hosting wiki.
type WikiConfig struct {
	// ScriptPath is used to build current-id links, e.g. /index.php?title=X&curid=1.
	ScriptPath string `yaml:"script_path" env:"WIKI_SCRIPT_PATH" env-default:"/index.php"`
	// TimeZone is the IANA zone used for user-adjusted dates.
	TimeZone string `yaml:"time_zone" env:"WIKI_TIME_ZONE" env-default:"UTC"`
	// ExtraNamespacesStr adds custom namespaces: "100=Portal,101=Portal talk".
	ExtraNamespacesStr string         `yaml:"extra_namespaces" env:"WIKI_EXTRA_NAMESPACES" env-default:""`
	ExtraNamespaces    map[int]string `yaml:"-"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	// File enables a rotating log file in addition to stderr.
	File       string `yaml:"file" env:"LOG_FILE" env-default:""`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"50"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"28"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile reads configuration from the given YAML file with environment overrides.
// A missing file falls back to environment variables and defaults.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.parseComplexFields(); err != nil {
		return nil, fmt.Errorf("failed to parse config fields: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration populated with defaults only.
// Intended for tests and embedding.
func Default() *Config {
	cfg := &Config{
		BindAddr: "127.0.0.1",
		Port:     "3480",
		Env:      "local",
		Database: DatabaseConfig{
			Type:           "sqlite",
			MaxConnections: 10,
			ConnectRetries: 3,
			SSLMode:        "disable",
		},
		PageList: PageListConfig{
			MaxCategoryCount:    4,
			MaxResultCount:      500,
			MaxMaterializedRows: 10000,
			QueryTimeoutSeconds: 30,
		},
		Wiki: WikiConfig{
			ScriptPath:      "/index.php",
			TimeZone:        "UTC",
			ExtraNamespaces: map[int]string{},
		},
		Logging: LoggingConfig{Level: "info"},
	}
	return cfg
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() error {
	c.PageList.AllowedNamespaces = splitList(c.PageList.AllowedNamespacesStr)

	ids, err := parseIntList(c.PageList.NonIncludableNamespacesStr)
	if err != nil {
		return fmt.Errorf("non_includable_namespaces: %w", err)
	}
	c.PageList.NonIncludableNamespaces = ids

	extra, err := parseNamespaceMap(c.Wiki.ExtraNamespacesStr)
	if err != nil {
		return fmt.Errorf("extra_namespaces: %w", err)
	}
	c.Wiki.ExtraNamespaces = extra
	return nil
}

func (c *Config) validate() error {
	switch c.Database.Type {
	case "mysql", "postgres", "sqlite", "sqlserver":
	default:
		return fmt.Errorf("unknown database type %q", c.Database.Type)
	}
	if c.Database.Type == "sqlite" && c.Database.Path == "" {
		return fmt.Errorf("database.path is required for sqlite")
	}
	if c.PageList.MinCategoryCount > c.PageList.MaxCategoryCount && !c.PageList.AllowUnlimitedCategories {
		return fmt.Errorf("min_category_count (%d) exceeds max_category_count (%d)",
			c.PageList.MinCategoryCount, c.PageList.MaxCategoryCount)
	}
	if c.PageList.MaxResultCount <= 0 {
		return fmt.Errorf("max_result_count must be positive")
	}
	if _, err := time.LoadLocation(c.Wiki.TimeZone); err != nil {
		return fmt.Errorf("time_zone: %w", err)
	}
	return nil
}

// Location returns the wiki time zone, falling back to UTC.
func (c *WikiConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ConnectionMap returns the database settings in the generic map form the
// datasource adapters accept.
func (c *DatabaseConfig) ConnectionMap() map[string]any {
	m := map[string]any{
		"host":            ResolveHostForDocker(c.Host),
		"user":            c.User,
		"password":        c.Password,
		"database":        c.Database,
		"ssl_mode":        c.SSLMode,
		"max_connections": int(c.MaxConnections),
	}
	if c.Port > 0 {
		m["port"] = c.Port
	}
	if c.Path != "" {
		m["path"] = c.Path
	}
	return m
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIntList(value string) ([]int, error) {
	var out []int
	for _, part := range splitList(value) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid namespace id %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

// parseNamespaceMap parses "100=Portal,101=Portal talk".
func parseNamespaceMap(value string) (map[int]string, error) {
	out := make(map[int]string)
	for _, pair := range splitList(value) {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid namespace entry %q", pair)
		}
		id, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid namespace id %q", parts[0])
		}
		out[id] = strings.TrimSpace(parts[1])
	}
	return out, nil
}
