package oracle

import (
	"fmt"
	"strings"
)

// Config contains Oracle-specific connection options. ConnectString is the
// Easy Connect form "host:port/service_name" or a full TNS descriptor.
type Config struct {
	User          string
	Password      string
	ConnectString string
}

// FromBundle creates a Config from a decoded credential bundle.
func FromBundle(bundle map[string]any) (*Config, error) {
	cfg := &Config{}

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

	if connectString, ok := bundle["connectString"].(string); ok && connectString != "" {
		cfg.ConnectString = connectString
	} else if connectString, ok := bundle["connect_string"].(string); ok && connectString != "" {
		cfg.ConnectString = connectString
	} else {
		return nil, fmt.Errorf("connectString is required")
	}

	return cfg, nil
}

// DSN builds a godror logfmt-style connection string. Values are quoted so
// special characters in passwords survive parsing.
func (c *Config) DSN() string {
	return fmt.Sprintf(`user=%q password=%q connectString=%q`,
		c.User, c.Password, c.ConnectString)
}

// SchemaOwner returns the catalog owner the adapter scopes discovery to:
// Oracle stores unquoted identifiers upper-cased.
func (c *Config) SchemaOwner() string {
	return strings.ToUpper(c.User)
}
