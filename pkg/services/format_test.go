package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/querypilot/querypilot-engine/pkg/models"
)

func TestFormatForPrompt_FullTable(t *testing.T) {
	schema := &models.NormalizedSchema{
		OrgID: 1,
		Tables: []models.TableDescriptor{
			{
				ID:          12,
				Name:        "USERS",
				Description: "Registered user accounts",
				Columns: []models.ColumnDescriptor{
					{Name: "id", NativeType: "int", IsSearchable: true},
					{Name: "name", NativeType: "varchar", Description: "Display name", IsSearchable: true},
				},
			},
		},
	}

	want := "Table: USERS (ID: 12)\n" +
		"Description: Registered user accounts\n" +
		"Columns:\n" +
		"  - id (int)\n" +
		"  - name (varchar): Display name"

	assert.Equal(t, want, FormatForPrompt(schema))
}

func TestFormatForPrompt_MissingDescriptionRendersNA(t *testing.T) {
	schema := &models.NormalizedSchema{
		Tables: []models.TableDescriptor{
			{
				ID:   3,
				Name: "EVENTS",
				Columns: []models.ColumnDescriptor{
					{Name: "ts", NativeType: "timestamp", IsSearchable: true},
				},
			},
		},
	}

	want := "Table: EVENTS (ID: 3)\n" +
		"Description: N/A\n" +
		"Columns:\n" +
		"  - ts (timestamp)"

	assert.Equal(t, want, FormatForPrompt(schema))
}

func TestFormatForPrompt_EmptyTableKeepsHeader(t *testing.T) {
	schema := &models.NormalizedSchema{
		Tables: []models.TableDescriptor{
			{ID: 5, Name: "ORDERS", Description: "Customer orders"},
		},
	}

	want := "Table: ORDERS (ID: 5)\n" +
		"Description: Customer orders\n" +
		"Columns:\n" +
		"No columns found for this table."

	assert.Equal(t, want, FormatForPrompt(schema))
}

func TestFormatForPrompt_MultipleTablesSeparatedByBlankLine(t *testing.T) {
	schema := &models.NormalizedSchema{
		OrgID: 42,
		Tables: []models.TableDescriptor{
			{
				ID:          1,
				Name:        "USERS",
				Description: "Contains user records",
				Columns: []models.ColumnDescriptor{
					{Name: "id", NativeType: "int", IsSearchable: true},
					{Name: "name", NativeType: "varchar", IsSearchable: true},
				},
			},
			{ID: 2, Name: "ORDERS", Description: "Contains order records"},
		},
	}

	want := "Table: USERS (ID: 1)\n" +
		"Description: Contains user records\n" +
		"Columns:\n" +
		"  - id (int)\n" +
		"  - name (varchar)\n" +
		"\n" +
		"Table: ORDERS (ID: 2)\n" +
		"Description: Contains order records\n" +
		"Columns:\n" +
		"No columns found for this table."

	assert.Equal(t, want, FormatForPrompt(schema))
}

func TestFormatForPrompt_EmptySchema(t *testing.T) {
	assert.Equal(t, "", FormatForPrompt(nil))
	assert.Equal(t, "", FormatForPrompt(&models.NormalizedSchema{}))
}

func TestFormatForPrompt_SearchableFilteringHappensUpstream(t *testing.T) {
	schema := &models.NormalizedSchema{
		Tables: []models.TableDescriptor{
			{
				ID:          1,
				Name:        "ACCOUNTS",
				Description: "Accounts",
				Columns: []models.ColumnDescriptor{
					{Name: "id", NativeType: "int", IsSearchable: true},
					{Name: "ssn", NativeType: "varchar", IsSearchable: false},
				},
			},
		},
	}

	got := FormatForPrompt(schema.Searchable())
	assert.Contains(t, got, "- id (int)")
	assert.NotContains(t, got, "ssn")
}
