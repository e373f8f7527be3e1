package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/apperrors"
	"github.com/querypilot/querypilot-engine/pkg/models"
)

func errNotFoundWrapped(orgID int64) error {
	return fmt.Errorf("aggregate for org %d: %w", orgID, apperrors.ErrNotFound)
}

// fakeOrgRepo serves a single org's stored blob.
type fakeOrgRepo struct {
	blob    string
	dialect string
	err     error

	savedBlob    string
	savedDialect string
	saveErr      error
}

func (f *fakeOrgRepo) GetCredentialBlob(_ context.Context, _ int64) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.blob, f.dialect, nil
}

func (f *fakeOrgRepo) SaveCredentials(_ context.Context, _ int64, blob, dialect string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.savedBlob = blob
	f.savedDialect = dialect
	return nil
}

// fakeResolver returns a fixed profile without touching a repository.
type fakeResolver struct {
	profile *models.ConnectionProfile
	err     error
}

func (f *fakeResolver) Resolve(_ context.Context, orgID int64) (*models.ConnectionProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.profile
	p.OrgID = orgID
	return &p, nil
}

// fakeTester counts connection tests and closes.
type fakeTester struct {
	err    error
	tested int
	closed int
}

func (f *fakeTester) TestConnection(_ context.Context) error {
	f.tested++
	return f.err
}

func (f *fakeTester) Close() error {
	f.closed++
	return nil
}

// fakeSchemaReader serves a canned catalog.
type fakeSchemaReader struct {
	tables  []string
	columns map[string][]dialect.Column

	listErr    error
	columnsErr error
	closed     int
}

func (f *fakeSchemaReader) ListTables(_ context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.tables, nil
}

func (f *fakeSchemaReader) ListColumns(_ context.Context, table string) ([]dialect.Column, error) {
	if f.columnsErr != nil {
		return nil, f.columnsErr
	}
	return f.columns[table], nil
}

func (f *fakeSchemaReader) Close() error {
	f.closed++
	return nil
}

// fakeQueryRunner counts dry runs, executions, and closes.
type fakeQueryRunner struct {
	explainErr error
	result     *dialect.QueryResult
	queryErr   error
	onQuery    func() // runs before Query returns, e.g. to cancel the request

	explained int
	queried   int
	closed    int
}

func (f *fakeQueryRunner) Explain(_ context.Context, _ string) error {
	f.explained++
	return f.explainErr
}

func (f *fakeQueryRunner) Query(_ context.Context, _ string, _ int) (*dialect.QueryResult, error) {
	f.queried++
	if f.onQuery != nil {
		f.onQuery()
	}
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.result != nil {
		return f.result, nil
	}
	return &dialect.QueryResult{Columns: []string{}, Rows: []map[string]any{}}, nil
}

func (f *fakeQueryRunner) Close() error {
	f.closed++
	return nil
}

// fakeFactory counts every adapter construction so tests can prove a code
// path never dialed.
type fakeFactory struct {
	tester *fakeTester
	reader *fakeSchemaReader
	runner *fakeQueryRunner

	testerErr error
	readerErr error
	runnerErr error

	testersCreated int
	readersCreated int
	runnersCreated int
}

func (f *fakeFactory) NewConnectionTester(_ context.Context, _ models.Dialect, _ map[string]any, _ int64) (dialect.ConnectionTester, error) {
	if f.testerErr != nil {
		return nil, f.testerErr
	}
	f.testersCreated++
	return f.tester, nil
}

func (f *fakeFactory) NewSchemaReader(_ context.Context, _ models.Dialect, _ map[string]any, _ int64) (dialect.SchemaReader, error) {
	if f.readerErr != nil {
		return nil, f.readerErr
	}
	f.readersCreated++
	return f.reader, nil
}

func (f *fakeFactory) NewQueryRunner(_ context.Context, _ models.Dialect, _ map[string]any, _ int64) (dialect.QueryRunner, error) {
	if f.runnerErr != nil {
		return nil, f.runnerErr
	}
	f.runnersCreated++
	return f.runner, nil
}

func (f *fakeFactory) ListDialects() []dialect.AdapterInfo {
	return nil
}

func (f *fakeFactory) dials() int {
	return f.testersCreated + f.readersCreated + f.runnersCreated
}

// memQueryRepo is an in-memory QueryRepository.
type memQueryRepo struct {
	records   []*models.ExecutionRecord
	insertErr error
}

func (m *memQueryRepo) InsertExecution(_ context.Context, record *models.ExecutionRecord) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	copied := *record
	m.records = append(m.records, &copied)
	return nil
}

func (m *memQueryRepo) ListRecent(_ context.Context, _ int64, _ int) ([]*models.ExecutionRecord, error) {
	return m.records, nil
}

// memActivityRepo is an in-memory ActivityRepository.
type memActivityRepo struct {
	activities []*models.UserActivity
	insertErr  error
}

func (m *memActivityRepo) Insert(_ context.Context, activity *models.UserActivity) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	copied := *activity
	m.activities = append(m.activities, &copied)
	return nil
}

// memPerfRepo is an in-memory PerformanceRepository keyed like the unique
// index on the real table.
type memPerfRepo struct {
	aggs      map[string]*models.PerformanceAggregate
	getErr    error
	upsertErr error
}

func newMemPerfRepo() *memPerfRepo {
	return &memPerfRepo{aggs: make(map[string]*models.PerformanceAggregate)}
}

func perfKey(orgID int64, period models.PeriodType, datePeriod time.Time) string {
	return fmt.Sprintf("%d:%s:%s", orgID, period, datePeriod.Format("2006-01-02"))
}

func (m *memPerfRepo) Get(_ context.Context, orgID int64, period models.PeriodType, datePeriod time.Time) (*models.PerformanceAggregate, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	agg, ok := m.aggs[perfKey(orgID, period, datePeriod)]
	if !ok {
		return nil, errNotFoundWrapped(orgID)
	}
	copied := *agg
	return &copied, nil
}

func (m *memPerfRepo) Upsert(_ context.Context, agg *models.PerformanceAggregate) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	copied := *agg
	m.aggs[perfKey(agg.OrgID, agg.PeriodType, agg.DatePeriod)] = &copied
	return nil
}

// memSchemaCache is an in-memory SchemaCacheRepository.
type memSchemaCache struct {
	tables     map[int64][]models.TableDescriptor
	replaceErr error
	getErr     error
	nextID     int64
}

func newMemSchemaCache() *memSchemaCache {
	return &memSchemaCache{tables: make(map[int64][]models.TableDescriptor), nextID: 1}
}

func (m *memSchemaCache) ReplaceSchema(_ context.Context, orgID int64, tables []models.TableDescriptor) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}

	existing := make(map[string]models.TableDescriptor)
	for _, t := range m.tables[orgID] {
		existing[t.Name] = t
	}

	stored := make([]models.TableDescriptor, 0, len(tables))
	for _, t := range tables {
		copied := t
		if prev, ok := existing[t.Name]; ok {
			copied.ID = prev.ID
			if prev.Description != "" {
				copied.Description = prev.Description
			}
		} else {
			copied.ID = m.nextID
			m.nextID++
		}
		stored = append(stored, copied)
	}
	m.tables[orgID] = stored
	return nil
}

func (m *memSchemaCache) GetSchema(_ context.Context, orgID int64) ([]models.TableDescriptor, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.tables[orgID], nil
}
