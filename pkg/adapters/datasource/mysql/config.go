package mysql

import (
	"fmt"
	"net"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-pagelist/pkg/config"
)

// Config contains MySQL/MariaDB connection options.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSLMode        string // disable, require, skip-verify, preferred
	MaxConnections int
}

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
}

// FromMap creates a Config from a generic config map.
func FromMap(m map[string]any) (*Config, error) {
	cfg := &Config{Port: DefaultPort(), SSLMode: "preferred"}

	host, ok := m["host"].(string)
	if !ok || host == "" {
		return nil, fmt.Errorf("host is required")
	}
	cfg.Host = host

	switch port := m["port"].(type) {
	case int:
		cfg.Port = port
	case float64:
		cfg.Port = int(port)
	}

	user, ok := m["user"].(string)
	if !ok || user == "" {
		return nil, fmt.Errorf("user is required")
	}
	cfg.User = user

	cfg.Password, _ = m["password"].(string)

	database, ok := m["database"].(string)
	if !ok || database == "" {
		return nil, fmt.Errorf("database is required")
	}
	cfg.Database = database

	if sslMode, ok := m["ssl_mode"].(string); ok && sslMode != "" {
		cfg.SSLMode = sslMode
	}
	if n, ok := m["max_connections"].(int); ok {
		cfg.MaxConnections = n
	}

	return cfg, nil
}

// tlsSetting maps the shared ssl_mode vocabulary onto the driver's tls parameter.
func tlsSetting(sslMode string) string {
	switch sslMode {
	case "disable":
		return "false"
	case "require", "verify-full":
		return "true"
	case "skip-verify", "verify-ca":
		return "skip-verify"
	default:
		return "preferred"
	}
}

// buildDSN renders the driver DSN. Timestamps stay as the wiki's 14-digit
// strings so parseTime is left off.
func buildDSN(cfg *Config, multiStatements bool) string {
	dc := gomysql.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(config.ResolveHostForDocker(cfg.Host), strconv.Itoa(cfg.Port))
	dc.DBName = cfg.Database
	dc.TLSConfig = tlsSetting(cfg.SSLMode)
	dc.Timeout = 10 * time.Second
	dc.MultiStatements = multiStatements
	dc.Params = map[string]string{
		// category lists in addcategories are built with GROUP_CONCAT
		"group_concat_max_len": "65535",
	}
	return dc.FormatDSN()
}
