// Package lakehouse owns the table lifecycle of a session's embedded analytic
// database: dynamic table creation, schema-evolving loads, introspection, and
// arbitrary read query execution.
package lakehouse

import (
	"strings"
	"time"
)

// System columns appended to every table. _ingested_at stamps load time and
// raw_data keeps a JSON snapshot of the full original row.
const (
	IngestedAtColumn = "_ingested_at"
	RawDataColumn    = "raw_data"
)

// ColumnSpec declares one user column. Type must be one of the SQL type
// tokens the inference layer is instructed to emit (VARCHAR, INTEGER, DOUBLE,
// DATE, BOOLEAN); the token is passed to the engine uncorrected and an
// invalid one surfaces as a DDL error.
type ColumnSpec struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Record maps column names to scalar (or null) values. Keys without a
// matching column trigger schema evolution on load.
type Record map[string]any

type TableInfo struct {
	TableName string `json:"table_name"`
	RowCount  int64  `json:"row_count"`
}

type ColumnInfo struct {
	Name string `json:"column_name"`
	Type string `json:"column_type"`
}

type QueryResult struct {
	Columns  []string      `json:"columns"`
	Rows     [][]any       `json:"rows"`
	Duration time.Duration `json:"-"`
}

// IsSystemColumn reports whether name is one of the columns the store adds on
// table creation.
func IsSystemColumn(name string) bool {
	return name == IngestedAtColumn || name == RawDataColumn
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
