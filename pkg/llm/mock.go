package llm

import "context"

// MockGenerator is a hand-rolled SQLGenerator for tests.
type MockGenerator struct {
	GenerateSQLFunc func(ctx context.Context, formattedSchema, question string) (string, error)
	Calls           []MockCall
}

// MockCall records one GenerateSQL invocation.
type MockCall struct {
	FormattedSchema string
	Question        string
}

func (m *MockGenerator) GenerateSQL(ctx context.Context, formattedSchema, question string) (string, error) {
	m.Calls = append(m.Calls, MockCall{FormattedSchema: formattedSchema, Question: question})
	if m.GenerateSQLFunc != nil {
		return m.GenerateSQLFunc(ctx, formattedSchema, question)
	}
	return "SELECT 1", nil
}

var _ SQLGenerator = (*MockGenerator)(nil)
