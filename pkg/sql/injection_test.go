package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckFreeText(t *testing.T) {
	t.Run("plain question is clean", func(t *testing.T) {
		finding := CheckFreeText("question", "how many orders shipped last week?")
		assert.Nil(t, finding)
	})

	t.Run("smuggled SQL is flagged", func(t *testing.T) {
		finding := CheckFreeText("question", "x' OR '1'='1")
		require.NotNil(t, finding)
		assert.Equal(t, "question", finding.Field)
		assert.NotEmpty(t, finding.Fingerprint)
	})

	t.Run("empty text is clean", func(t *testing.T) {
		assert.Nil(t, CheckFreeText("question", ""))
	})
}
