package mysql

import (
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/querypilot/querypilot-engine/pkg/jsonutil"
)

// Config contains MySQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return 3306
}

// FromBundle creates a Config from a decoded credential bundle.
func FromBundle(bundle map[string]any) (*Config, error) {
	cfg := &Config{Port: DefaultPort()}

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

	return cfg, nil
}

// DSN builds the driver connection string through the driver's own config
// type, which handles escaping of special characters.
func (c *Config) DSN() string {
	driverCfg := gomysql.NewConfig()
	driverCfg.User = c.User
	driverCfg.Passwd = c.Password
	driverCfg.Net = "tcp"
	driverCfg.Addr = fmt.Sprintf("%s:%d", c.Host, c.Port)
	driverCfg.DBName = c.Database
	driverCfg.ParseTime = true
	driverCfg.Timeout = 10 * time.Second
	return driverCfg.FormatDSN()
}
