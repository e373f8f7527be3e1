// Package config loads engine configuration from config.yaml with
// environment-variable overrides. Secrets only ever come from the
// environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the NL2SQL engine.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // injected at build time

	// Admin metadata database (PostgreSQL, holds the NL2SQL_* tables)
	Database DatabaseConfig `yaml:"database"`

	// Per-organization external datasource connection management
	Datasource DatasourceConfig `yaml:"datasource"`

	// LLM endpoint used for SQL generation (OpenAI-compatible)
	LLM LLMConfig `yaml:"llm"`

	// Optional AES key for credential bundles at rest.
	// Generate with: openssl rand -base64 32
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"` // secret, env only

	// MigrationsPath points at the golang-migrate SQL directory.
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// DatabaseConfig holds the admin PostgreSQL pool settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"nl2sql"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // secret, env only
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"nl2sql_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MinConnections int32  `yaml:"min_connections" env:"PGMIN_CONNECTIONS" env-default:"2"`
}

// DatasourceConfig bounds the per-organization pools for external tenant
// databases. External databases are untrusted third parties, so every call
// carries its own connect timeout independent of the request deadline.
type DatasourceConfig struct {
	ConnectionTTLMinutes  int `yaml:"connection_ttl_minutes" env:"DATASOURCE_CONNECTION_TTL_MINUTES" env-default:"5"`
	PoolMaxConns          int `yaml:"pool_max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"5"`
	PoolMinConns          int `yaml:"pool_min_conns" env:"DATASOURCE_POOL_MIN_CONNS" env-default:"1"`
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds" env:"DATASOURCE_CONNECT_TIMEOUT_SECONDS" env-default:"5"`
	MaxPoolsPerOrg        int `yaml:"max_pools_per_org" env:"DATASOURCE_MAX_POOLS_PER_ORG" env-default:"2"`
}

// ConnectTimeout returns the external-database connect timeout as a Duration.
func (c *DatasourceConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// LLMConfig holds the SQL-generation endpoint settings. The engine only
// exchanges a formatted schema string and a question for a SQL candidate;
// prompt construction lives with the endpoint's caller configuration.
type LLMConfig struct {
	BaseURL string `yaml:"base_url" env:"LLM_BASE_URL" env-default:""`
	Model   string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey  string `yaml:"-" env:"LLM_API_KEY"` // secret, env only
}

// IsAvailable returns true if an LLM endpoint is configured.
func (c *LLMConfig) IsAvailable() bool {
	return c.BaseURL != "" || c.APIKey != ""
}

// Load reads config.yaml with environment overrides. When no config.yaml
// exists the environment alone is used, which is how containers run it.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	return cfg, nil
}

// ConnectionString returns the admin database DSN.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
