package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsReadStatement(t *testing.T) {
	tests := []struct {
		name    string
		sqlText string
		want    bool
	}{
		{"plain select", "SELECT id FROM users", true},
		{"lowercase select", "select id from users", true},
		{"mixed case", "SeLeCt 1 FROM dual", true},
		{"leading whitespace", "   \n\tSELECT 1 FROM t", true},
		{"cte", "WITH recent AS (SELECT 1) SELECT * FROM recent", true},
		{"lowercase cte", "with x as (select 1) select * from x", true},
		{"delete", "DELETE FROM users", false},
		{"update", "UPDATE users SET name = 'x'", false},
		{"insert", "INSERT INTO users VALUES (1)", false},
		{"drop", "DROP TABLE users", false},
		{"select without following space", "SELECTX", false},
		{"empty", "", false},
		{"select as substring", "EXPLAIN SELECT 1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsReadStatement(tt.sqlText))
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Run("strips trailing semicolon", func(t *testing.T) {
		got, err := Normalize("SELECT 1;")
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1", got)
	})

	t.Run("strips semicolon with trailing whitespace", func(t *testing.T) {
		got, err := Normalize("SELECT 1 ;  \n")
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1", got)
	})

	t.Run("rejects multiple statements", func(t *testing.T) {
		_, err := Normalize("SELECT 1; DROP TABLE users")
		assert.ErrorIs(t, err, ErrMultipleStatements)
	})

	t.Run("semicolon inside string literal is fine", func(t *testing.T) {
		got, err := Normalize("SELECT * FROM t WHERE note = 'a;b'")
		require.NoError(t, err)
		assert.Equal(t, "SELECT * FROM t WHERE note = 'a;b'", got)
	})

	t.Run("escaped quote does not end the literal", func(t *testing.T) {
		_, err := Normalize(`SELECT * FROM t WHERE note = 'it''s; fine'`)
		require.NoError(t, err)
	})

	t.Run("empty input", func(t *testing.T) {
		got, err := Normalize("   ")
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})
}
