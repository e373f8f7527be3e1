package dialect

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/querypilot/querypilot-engine/pkg/models"
)

func TestErrorKindPredicates(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	connErr := ConnectionError(models.DialectPostgres, cause)
	queryErr := QueryError(models.DialectOracle, errors.New(`ORA-00942: table or view does not exist`))

	assert.True(t, IsConnectionError(connErr))
	assert.False(t, IsQueryError(connErr))
	assert.True(t, IsQueryError(queryErr))
	assert.False(t, IsConnectionError(queryErr))

	// Predicates see through fmt.Errorf wrapping.
	wrapped := fmt.Errorf("validating statement: %w", connErr)
	assert.True(t, IsConnectionError(wrapped))

	// And Unwrap exposes the cause.
	assert.True(t, errors.Is(connErr, cause))
}

func TestErrorKindPredicates_PlainErrors(t *testing.T) {
	plain := errors.New("something broke")
	assert.False(t, IsConnectionError(plain))
	assert.False(t, IsQueryError(plain))
	assert.False(t, IsConnectionError(nil))
}

func TestClassifyQueryError(t *testing.T) {
	t.Run("deadline expiry is connection-level", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
		defer cancel()
		<-ctx.Done()

		classified := ClassifyQueryError(models.DialectMySQL, ctx.Err())
		assert.Equal(t, KindConnection, classified.Kind)
	})

	t.Run("statement rejection is query-level", func(t *testing.T) {
		classified := ClassifyQueryError(models.DialectPostgres, errors.New(`syntax error at or near "FORM"`))
		assert.Equal(t, KindQuery, classified.Kind)
		assert.Equal(t, models.DialectPostgres, classified.Dialect)
	})

	t.Run("wrapped cancellation is connection-level", func(t *testing.T) {
		err := fmt.Errorf("query failed: %w", context.Canceled)
		classified := ClassifyQueryError(models.DialectMSSQL, err)
		assert.Equal(t, KindConnection, classified.Kind)
	})
}

func TestErrorMessageIncludesDialectAndKind(t *testing.T) {
	err := QueryError(models.DialectOracle, errors.New("boom"))
	require.Contains(t, err.Error(), "oracle")
	require.Contains(t, err.Error(), "query")
	require.Contains(t, err.Error(), "boom")
}
