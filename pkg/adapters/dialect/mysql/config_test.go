package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromBundle(t *testing.T) {
	t.Run("full bundle", func(t *testing.T) {
		cfg, err := FromBundle(map[string]any{
			"host":     "mysql.internal",
			"port":     float64(3307),
			"user":     "reader",
			"password": "pw",
			"database": "shop",
		})
		require.NoError(t, err)
		assert.Equal(t, "mysql.internal", cfg.Host)
		assert.Equal(t, 3307, cfg.Port)
		assert.Equal(t, "shop", cfg.Database)
	})

	t.Run("default port", func(t *testing.T) {
		cfg, err := FromBundle(map[string]any{
			"host":     "localhost",
			"user":     "app",
			"database": "appdb",
		})
		require.NoError(t, err)
		assert.Equal(t, 3306, cfg.Port)
	})

	t.Run("missing required fields", func(t *testing.T) {
		_, err := FromBundle(map[string]any{"user": "u", "database": "d"})
		assert.ErrorContains(t, err, "host is required")

		_, err = FromBundle(map[string]any{"host": "h", "user": "u"})
		assert.ErrorContains(t, err, "database is required")
	})
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		Host:     "mysql.internal",
		Port:     3306,
		User:     "app",
		Password: "pw",
		Database: "shop",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "app:pw@tcp(mysql.internal:3306)/shop")
	assert.Contains(t, dsn, "parseTime=true")
}
