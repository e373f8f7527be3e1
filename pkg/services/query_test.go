package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/audit"
	"github.com/querypilot/querypilot-engine/pkg/llm"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

// fakeTracker records tracker inputs without any storage. It honors the
// context like the real repositories do: a dead context writes nothing.
type fakeTracker struct {
	inputs []models.ExecutionRecordInput
	err    error
}

func (f *fakeTracker) RecordExecution(ctx context.Context, input models.ExecutionRecordInput) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return uuid.New(), nil
}

type queryFixture struct {
	svc       QueryService
	factory   *fakeFactory
	runner    *fakeQueryRunner
	reader    *fakeSchemaReader
	generator *llm.MockGenerator
	tracker   *fakeTracker
}

func newQueryFixture(t *testing.T, d models.Dialect, generated string) *queryFixture {
	t.Helper()

	reader := &fakeSchemaReader{
		tables: []string{"USERS"},
		columns: map[string][]dialect.Column{
			"USERS": {{Name: "id", DataType: "int", OrdinalPosition: 1}},
		},
	}
	runner := &fakeQueryRunner{
		result: &dialect.QueryResult{
			Columns:  []string{"count"},
			Rows:     []map[string]any{{"count": int64(7)}},
			RowCount: 1,
		},
	}
	factory := &fakeFactory{reader: reader, runner: runner}
	resolver := &fakeResolver{
		profile: &models.ConnectionProfile{
			Dialect: d,
			Bundle:  map[string]any{"host": "db.internal"},
		},
	}
	generator := &llm.MockGenerator{
		GenerateSQLFunc: func(_ context.Context, _, _ string) (string, error) {
			return generated, nil
		},
	}
	tracker := &fakeTracker{}
	logger := zaptest.NewLogger(t)
	auditor := audit.NewSecurityAuditor(logger)

	schemas := NewSchemaService(resolver, factory, nil, logger)
	validator := NewValidatorService(resolver, factory, nil, logger)
	svc := NewQueryService(schemas, resolver, generator, validator, factory, tracker, auditor, logger)

	return &queryFixture{
		svc:       svc,
		factory:   factory,
		runner:    runner,
		reader:    reader,
		generator: generator,
		tracker:   tracker,
	}
}

func TestQueryService_AskHappyPath(t *testing.T) {
	f := newQueryFixture(t, models.DialectPostgres, "SELECT COUNT(*) FROM users")

	result, err := f.svc.Ask(context.Background(), 42, "u-1", "how many users are there")
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM users", result.SQL)
	assert.True(t, result.Validation.IsValid)
	assert.Equal(t, 9, result.Evaluation.Score)
	assert.Equal(t, 1, result.Result.RowCount)
	assert.NotEqual(t, uuid.Nil, result.ExecutionID)

	// The generator saw the rendered schema.
	require.Len(t, f.generator.Calls, 1)
	assert.Contains(t, f.generator.Calls[0].FormattedSchema, "Table: USERS")

	require.Len(t, f.tracker.inputs, 1)
	tracked := f.tracker.inputs[0]
	assert.Equal(t, models.StatusSuccess, tracked.Status)
	assert.Equal(t, "how many users are there", tracked.QueryText)
	require.NotNil(t, tracked.RowsReturned)
	assert.Equal(t, int64(1), *tracked.RowsReturned)
}

func TestQueryService_WriteStatementNeverReachesRunner(t *testing.T) {
	f := newQueryFixture(t, models.DialectPostgres, "DROP TABLE users")

	result, err := f.svc.Ask(context.Background(), 42, "u-1", "delete everything")
	require.Error(t, err)

	// Schema introspection dialed once; the rejected statement added nothing.
	assert.Equal(t, 0, f.runner.explained)
	assert.Equal(t, 0, f.runner.queried)
	assert.Equal(t, 0, f.factory.runnersCreated)

	require.Len(t, f.tracker.inputs, 1)
	assert.Equal(t, models.StatusFailed, f.tracker.inputs[0].Status)
	assert.False(t, result.Validation.IsValid)
}

func TestQueryService_ValidationFailureRecordsFailed(t *testing.T) {
	f := newQueryFixture(t, models.DialectPostgres, "SELECT * FROM userz")
	f.runner.explainErr = dialect.QueryError(models.DialectPostgres, errors.New(`relation "userz" does not exist`))

	result, err := f.svc.Ask(context.Background(), 42, "u-1", "list users")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `relation "userz" does not exist`)

	assert.Equal(t, 0, f.runner.queried)
	require.Len(t, f.tracker.inputs, 1)
	assert.Equal(t, models.StatusFailed, f.tracker.inputs[0].Status)
	assert.False(t, result.Validation.IsValid)
}

func TestQueryService_ExecutionFailureRecordsFailed(t *testing.T) {
	f := newQueryFixture(t, models.DialectPostgres, "SELECT COUNT(*) FROM users")
	f.runner.queryErr = dialect.QueryError(models.DialectPostgres, errors.New("canceling statement due to statement timeout"))

	_, err := f.svc.Ask(context.Background(), 42, "u-1", "how many users")
	require.Error(t, err)

	require.Len(t, f.tracker.inputs, 1)
	tracked := f.tracker.inputs[0]
	assert.Equal(t, models.StatusFailed, tracked.Status)
	require.NotNil(t, tracked.ErrorMessage)
	assert.Contains(t, *tracked.ErrorMessage, "statement timeout")
}

func TestQueryService_CancelledRequestStillRecorded(t *testing.T) {
	f := newQueryFixture(t, models.DialectPostgres, "SELECT COUNT(*) FROM users")

	// The client disconnects while the statement is running: the request
	// context dies mid-query and the runner returns its cancellation error.
	ctx, cancel := context.WithCancel(context.Background())
	f.runner.onQuery = func() { cancel() }
	f.runner.queryErr = dialect.QueryError(models.DialectPostgres, context.Canceled)

	result, err := f.svc.Ask(ctx, 42, "u-1", "how many users")
	require.Error(t, err)

	// The history row must survive the dead request context.
	require.Len(t, f.tracker.inputs, 1)
	tracked := f.tracker.inputs[0]
	assert.Equal(t, models.StatusCancelled, tracked.Status)
	assert.Equal(t, int64(42), tracked.OrgID)
	assert.NotEqual(t, uuid.Nil, result.ExecutionID)
}

func TestQueryService_OracleLimitRewrittenBeforeExecution(t *testing.T) {
	f := newQueryFixture(t, models.DialectOracle, "SELECT * FROM HR.EMPLOYEES LIMIT 5")

	result, err := f.svc.Ask(context.Background(), 42, "u-1", "show some employees")
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM HR.EMPLOYEES WHERE ROWNUM <= 5", result.SQL)
}

func TestQueryService_TrackingFailureDoesNotFailTheQuery(t *testing.T) {
	f := newQueryFixture(t, models.DialectPostgres, "SELECT COUNT(*) FROM users")
	f.tracker.err = assert.AnError

	result, err := f.svc.Ask(context.Background(), 42, "u-1", "how many users")
	require.NoError(t, err)

	assert.Equal(t, uuid.Nil, result.ExecutionID)
	assert.Equal(t, 1, result.Result.RowCount)
}

// Every adapter handle opened during an ask is closed, including on failure
// paths.
func TestQueryService_AdapterHandlesAlwaysClosed(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		f := newQueryFixture(t, models.DialectPostgres, "SELECT COUNT(*) FROM users")

		_, err := f.svc.Ask(context.Background(), 42, "u-1", "how many users")
		require.NoError(t, err)

		assert.Equal(t, f.factory.readersCreated, f.reader.closed)
		// One runner for the validation dry run, one for evaluation's
		// re-validation, one for execution.
		assert.Equal(t, f.factory.runnersCreated, f.runner.closed)
	})

	t.Run("execution failure", func(t *testing.T) {
		f := newQueryFixture(t, models.DialectPostgres, "SELECT COUNT(*) FROM users")
		f.runner.queryErr = dialect.QueryError(models.DialectPostgres, errors.New("boom"))

		_, err := f.svc.Ask(context.Background(), 42, "u-1", "how many users")
		require.Error(t, err)

		assert.Equal(t, f.factory.readersCreated, f.reader.closed)
		assert.Equal(t, f.factory.runnersCreated, f.runner.closed)
	})

	t.Run("dry run failure", func(t *testing.T) {
		f := newQueryFixture(t, models.DialectPostgres, "SELECT COUNT(*) FROM users")
		f.runner.explainErr = dialect.QueryError(models.DialectPostgres, errors.New("boom"))

		_, err := f.svc.Ask(context.Background(), 42, "u-1", "how many users")
		require.Error(t, err)

		assert.Equal(t, f.factory.readersCreated, f.reader.closed)
		assert.Equal(t, f.factory.runnersCreated, f.runner.closed)
	})
}
