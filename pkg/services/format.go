package services

import (
	"fmt"
	"strings"

	"github.com/querypilot/querypilot-engine/pkg/models"
)

// FormatForPrompt renders a normalized schema as the plain-text block fed to
// the SQL generator. The layout is load-bearing: generation quality was tuned
// against exactly this shape, so changes here need a regeneration pass over
// the prompt suite.
//
// Each table renders as:
//
//	Table: <name> (ID: <id>)
//	Description: <description or N/A>
//	Columns:
//	  - <column> (<type>)
//	  - <column> (<type>): <column description>
//
// A table with no columns keeps its header and gets a literal
// "No columns found for this table." line. Tables are separated by one
// blank line. Searchability filtering happens upstream; this function
// renders whatever it is given.
func FormatForPrompt(schema *models.NormalizedSchema) string {
	if schema == nil || schema.IsEmpty() {
		return ""
	}

	blocks := make([]string, 0, len(schema.Tables))
	for _, table := range schema.Tables {
		var b strings.Builder

		fmt.Fprintf(&b, "Table: %s (ID: %d)\n", table.Name, table.ID)

		description := table.Description
		if description == "" {
			description = "N/A"
		}
		fmt.Fprintf(&b, "Description: %s\n", description)

		b.WriteString("Columns:\n")
		if len(table.Columns) == 0 {
			b.WriteString("No columns found for this table.")
		} else {
			for i, col := range table.Columns {
				if col.Description != "" {
					fmt.Fprintf(&b, "  - %s (%s): %s", col.Name, col.NativeType, col.Description)
				} else {
					fmt.Fprintf(&b, "  - %s (%s)", col.Name, col.NativeType)
				}
				if i < len(table.Columns)-1 {
					b.WriteString("\n")
				}
			}
		}

		blocks = append(blocks, b.String())
	}

	return strings.Join(blocks, "\n\n")
}
