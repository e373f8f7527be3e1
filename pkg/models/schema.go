package models

// ColumnDescriptor describes a single column of an external table.
type ColumnDescriptor struct {
	Name         string `json:"name"`
	NativeType   string `json:"native_type"`
	Description  string `json:"description,omitempty"`
	IsSearchable bool   `json:"is_searchable"`
}

// TableDescriptor describes one external table with its ordered columns.
// Column order matches the source database's ordinal positions.
type TableDescriptor struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Columns     []ColumnDescriptor `json:"columns"`
}

// NormalizedSchema is the uniform, dialect-independent schema representation
// handed to the prompt formatter. It is recomputed per request, never cached
// in memory across requests.
type NormalizedSchema struct {
	OrgID  int64             `json:"org_id"`
	Tables []TableDescriptor `json:"tables"`
}

// IsEmpty reports whether the organization exposes no tables. An empty
// schema is a valid, displayable state, not an error.
func (s *NormalizedSchema) IsEmpty() bool {
	return len(s.Tables) == 0
}

// Searchable returns a copy of the schema restricted to searchable columns.
// Filtering happens here, upstream of formatting; the formatter renders
// whatever it is given.
func (s *NormalizedSchema) Searchable() *NormalizedSchema {
	out := &NormalizedSchema{OrgID: s.OrgID, Tables: make([]TableDescriptor, 0, len(s.Tables))}
	for _, t := range s.Tables {
		filtered := TableDescriptor{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
		}
		for _, c := range t.Columns {
			if c.IsSearchable {
				filtered.Columns = append(filtered.Columns, c)
			}
		}
		out.Tables = append(out.Tables, filtered)
	}
	return out
}
