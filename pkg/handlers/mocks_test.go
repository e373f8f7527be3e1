package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/querypilot/querypilot-engine/pkg/adapters/dialect"
	"github.com/querypilot/querypilot-engine/pkg/models"
	"github.com/querypilot/querypilot-engine/pkg/services"
)

type mockSchemaService struct {
	schema *models.NormalizedSchema
	err    error
}

func (m *mockSchemaService) Introspect(_ context.Context, orgID int64) (*models.NormalizedSchema, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := *m.schema
	s.OrgID = orgID
	return &s, nil
}

type mockQueryService struct {
	result *services.AskResult
	err    error

	lastOrgID    int64
	lastUserID   string
	lastQuestion string
}

func (m *mockQueryService) Ask(_ context.Context, orgID int64, userID, question string) (*services.AskResult, error) {
	m.lastOrgID = orgID
	m.lastUserID = userID
	m.lastQuestion = question
	return m.result, m.err
}

type mockValidator struct {
	result *models.ValidationResult
	eval   *models.Evaluation
	err    error
}

func (m *mockValidator) Validate(_ context.Context, _ string, _ *int64) (*models.ValidationResult, error) {
	return m.result, m.err
}

func (m *mockValidator) Optimize(sqlText string, _ models.Dialect) string {
	return sqlText
}

func (m *mockValidator) Evaluate(_ context.Context, _, _ string, _ *int64) (*models.Evaluation, error) {
	return m.eval, m.err
}

type mockConnectionService struct {
	testErr error
	saveErr error

	savedDialect models.Dialect
	savedBundle  map[string]any
}

func (m *mockConnectionService) TestConnection(_ context.Context, _ int64) error {
	return m.testErr
}

func (m *mockConnectionService) SaveCredentials(_ context.Context, _ int64, d models.Dialect, bundle map[string]any) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.savedDialect = d
	m.savedBundle = bundle
	return nil
}

type mockQueryRepo struct {
	records []*models.ExecutionRecord
	err     error
}

func (m *mockQueryRepo) InsertExecution(_ context.Context, record *models.ExecutionRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	m.records = append(m.records, record)
	return nil
}

func (m *mockQueryRepo) ListRecent(_ context.Context, _ int64, _ int) ([]*models.ExecutionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

type mockAdapterFactory struct {
	dialects []dialect.AdapterInfo
}

func (m *mockAdapterFactory) NewConnectionTester(_ context.Context, _ models.Dialect, _ map[string]any, _ int64) (dialect.ConnectionTester, error) {
	return nil, nil
}

func (m *mockAdapterFactory) NewSchemaReader(_ context.Context, _ models.Dialect, _ map[string]any, _ int64) (dialect.SchemaReader, error) {
	return nil, nil
}

func (m *mockAdapterFactory) NewQueryRunner(_ context.Context, _ models.Dialect, _ map[string]any, _ int64) (dialect.QueryRunner, error) {
	return nil, nil
}

func (m *mockAdapterFactory) ListDialects() []dialect.AdapterInfo {
	return m.dialects
}
