package mssql

import (
	"fmt"
	"net/url"

	"github.com/querypilot/querypilot-engine/pkg/jsonutil"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Server   string
	Port     int
	User     string
	Password string
	Database string
	Encrypt  string // "disable", "false", "true"
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultEncrypt returns the default encryption mode.
func DefaultEncrypt() string {
	return "true"
}

// FromBundle creates a Config from a decoded credential bundle. SQL Server
// bundles use "server" where other dialects use "host".
func FromBundle(bundle map[string]any) (*Config, error) {
	cfg := &Config{
		Port:    DefaultPort(),
		Encrypt: DefaultEncrypt(),
	}

	if server, ok := bundle["server"].(string); ok && server != "" {
		cfg.Server = server
	} else if host, ok := bundle["host"].(string); ok && host != "" {
		cfg.Server = host
	} else {
		return nil, fmt.Errorf("server is required")
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

	if encrypt, ok := bundle["encrypt"].(string); ok && encrypt != "" {
		cfg.Encrypt = encrypt
	}

	return cfg, nil
}

// ConnectionString builds a sqlserver:// URL. url.URL handles escaping of
// credentials with special characters.
func (c *Config) ConnectionString() string {
	query := url.Values{}
	query.Set("database", c.Database)
	query.Set("encrypt", c.Encrypt)

	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Server, c.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
