package analyst

import (
	"sort"
	"strings"

	"github.com/lakelens/lakelens/internal/lakehouse"
)

// TableSchema pairs a table name with its user-visible column layout.
type TableSchema struct {
	TableName string                `json:"table_name"`
	Columns   []lakehouse.ColumnInfo `json:"columns"`
}

// JoinCandidate names a pair of tables that share at least one non-system
// column. Table names keep the caller's ordering; common columns are sorted.
type JoinCandidate struct {
	TableA        string   `json:"table_a"`
	TableB        string   `json:"table_b"`
	CommonColumns []string `json:"common_columns"`
}

// BuildSchemaContext renders the schemas into the prompt block the analyst
// models consume, one table per stanza.
func BuildSchemaContext(schemas []TableSchema) string {
	var sb strings.Builder
	for i, schema := range schemas {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Table: ")
		sb.WriteString(schema.TableName)
		sb.WriteString("\n")
		for _, column := range schema.Columns {
			sb.WriteString("  - ")
			sb.WriteString(column.Name)
			sb.WriteString(" (")
			sb.WriteString(column.Type)
			sb.WriteString(")\n")
		}
	}
	return sb.String()
}

// DetectJoins compares every table pair and reports the ones with overlapping
// column names. System columns are ignored since they exist on every table.
func DetectJoins(schemas []TableSchema) []JoinCandidate {
	candidates := []JoinCandidate{}
	for i := 0; i < len(schemas); i++ {
		for j := i + 1; j < len(schemas); j++ {
			common := commonColumns(schemas[i].Columns, schemas[j].Columns)
			if len(common) == 0 {
				continue
			}
			candidates = append(candidates, JoinCandidate{
				TableA:        schemas[i].TableName,
				TableB:        schemas[j].TableName,
				CommonColumns: common,
			})
		}
	}
	return candidates
}

func commonColumns(a, b []lakehouse.ColumnInfo) []string {
	seen := make(map[string]bool, len(a))
	for _, column := range a {
		if lakehouse.IsSystemColumn(column.Name) {
			continue
		}
		seen[column.Name] = true
	}
	common := []string{}
	for _, column := range b {
		if lakehouse.IsSystemColumn(column.Name) {
			continue
		}
		if seen[column.Name] {
			common = append(common, column.Name)
			seen[column.Name] = false
		}
	}
	sort.Strings(common)
	return common
}
