package models

import "time"

// Inferred column types produced by table inspection. Inference pattern-matches
// a single sample value, so these are best-effort labels, not schema truth.
const (
	TypeNull      = "null"
	TypeText      = "text"
	TypeUUID      = "uuid"
	TypeTimestamp = "timestamp"
	TypeInteger   = "integer"
	TypeNumeric   = "numeric"
	TypeBoolean   = "boolean"
	TypeArray     = "array"
	TypeJSONB     = "jsonb"
	TypeUnknown   = "unknown"
)

// DiscoveredTable is one table found by schema discovery. Columns stays empty
// here; enumeration is cheap while column introspection is expensive and done
// on demand through table inspection.
type DiscoveredTable struct {
	Name        string          `json:"name"`
	RowCount    int64           `json:"row_count"`
	Columns     []ColumnProfile `json:"columns"`
	LastChecked time.Time       `json:"last_checked"`
}

// ColumnProfile is a best-effort column description inferred from a single
// sample value. Nullable reflects only whether that one sample was null; a
// single row cannot prove a column is ever non-null.
type ColumnProfile struct {
	Name         string `json:"name"`
	InferredType string `json:"inferred_type"`
	Nullable     bool   `json:"nullable"`
	SampleValue  any    `json:"sample_value"`
	Position     int    `json:"position"`
}

// TableDetails is the result of inspecting a single tenant table.
type TableDetails struct {
	Name       string           `json:"name"`
	Exists     bool             `json:"exists"`
	RowCount   int64            `json:"row_count"`
	Columns    []ColumnProfile  `json:"columns"`
	SampleData []map[string]any `json:"sample_data"`
	Error      string           `json:"error,omitempty"`
}
