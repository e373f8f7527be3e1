package postgres

import (
	"fmt"
	"net/url"

	"github.com/querypilot/querypilot-engine/pkg/jsonutil"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "require"
}

// FromBundle creates a Config from a decoded credential bundle. Numeric
// fields may arrive as float64, int, or string depending on how the bundle
// was stored.
func FromBundle(bundle map[string]any) (*Config, error) {
	cfg := &Config{
		Port:    DefaultPort(),
		SSLMode: DefaultSSLMode(),
	}

	if host, ok := bundle["host"].(string); ok && host != "" {
		cfg.Host = host
	} else {
		return nil, fmt.Errorf("host is required")
	}

	if port, ok := jsonutil.IntValue(bundle["port"]); ok {
		cfg.Port = port
	}

	if user, ok := bundle["user"].(string); ok && user != "" {
		cfg.User = user
	} else if user, ok := bundle["username"].(string); ok && user != "" {
		cfg.User = user
	} else {
		return nil, fmt.Errorf("user is required")
	}

	if password, ok := bundle["password"].(string); ok {
		cfg.Password = password
	}

	if database, ok := bundle["database"].(string); ok && database != "" {
		cfg.Database = database
	} else if name, ok := bundle["name"].(string); ok && name != "" {
		cfg.Database = name
	} else {
		return nil, fmt.Errorf("database is required")
	}

	if sslMode, ok := bundle["ssl_mode"].(string); ok && sslMode != "" {
		cfg.SSLMode = sslMode
	}

	return cfg, nil
}

// ConnectionString builds a PostgreSQL URL. User-provided fields are
// URL-escaped so special characters in passwords do not break parsing.
func (c *Config) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}

	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
		sslMode,
	)
}
