package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTableRef(t *testing.T) {
	t.Run("qualified reference", func(t *testing.T) {
		owner, table := splitTableRef("hr.employees")
		assert.Equal(t, "HR", owner)
		assert.Equal(t, "EMPLOYEES", table)
	})

	t.Run("bare reference", func(t *testing.T) {
		owner, table := splitTableRef("employees")
		assert.Equal(t, "", owner)
		assert.Equal(t, "EMPLOYEES", table)
	})

	t.Run("already upper case", func(t *testing.T) {
		owner, table := splitTableRef("HR.EMPLOYEES")
		assert.Equal(t, "HR", owner)
		assert.Equal(t, "EMPLOYEES", table)
	})
}
