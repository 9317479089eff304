// Package export encodes extracted records and table snapshots as CSV or
// Parquet, and pushes snapshots to the archive object store.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/lakelens/lakelens/internal/lakehouse"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// ContentType maps a format to the MIME type the bytes are served with.
func ContentType(format string) (string, error) {
	switch format {
	case FormatCSV:
		return "text/csv", nil
	case FormatParquet:
		return "application/vnd.apache.parquet", nil
	default:
		return "", fmt.Errorf("unsupported export format %q", format)
	}
}

// Encode renders the records in the requested format.
func Encode(records []lakehouse.Record, format string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ToCSV(records)
	case FormatParquet:
		return ToParquet(records)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// ToCSV writes one header row over the sorted union of all record columns,
// then one line per record. Missing values render as empty cells, so the
// output is deterministic for a given input.
func ToCSV(records []lakehouse.Record) ([]byte, error) {
	columns := unionColumns(records)
	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)

	if err := writer.Write(columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	row := make([]string, len(columns))
	for _, record := range records {
		for i, column := range columns {
			row[i] = renderCell(record[column])
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ToParquet infers one optional leaf per column from the first non-null
// value it carries and encodes all records in memory. Columns that never
// carry a value encode as optional strings.
func ToParquet(records []lakehouse.Record) ([]byte, error) {
	columns := unionColumns(records)
	if len(columns) == 0 {
		return nil, fmt.Errorf("no columns to encode")
	}

	group := parquet.Group{}
	kinds := make(map[string]string, len(columns))
	for _, column := range columns {
		kind := inferKind(records, column)
		kinds[column] = kind
		group[column] = parquet.Optional(leafNode(kind))
	}
	schema := parquet.NewSchema("export", group)

	rows := make([]map[string]any, 0, len(records))
	for _, record := range records {
		row := make(map[string]any, len(record))
		for _, column := range columns {
			value := record[column]
			if value == nil {
				continue
			}
			coerced, err := coerceToKind(value, kinds[column])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", column, err)
			}
			row[column] = coerced
		}
		rows = append(rows, row)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[map[string]any](buf, schema)
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return nil, fmt.Errorf("write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// ResultRecords converts an executed query result into records keyed by
// column name, the shape the encoders consume.
func ResultRecords(result lakehouse.QueryResult) []lakehouse.Record {
	records := make([]lakehouse.Record, 0, len(result.Rows))
	for _, row := range result.Rows {
		record := make(lakehouse.Record, len(result.Columns))
		for i, column := range result.Columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}

func unionColumns(records []lakehouse.Record) []string {
	seen := map[string]bool{}
	for _, record := range records {
		for column := range record {
			seen[column] = true
		}
	}
	columns := make([]string, 0, len(seen))
	for column := range seen {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

func renderCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

const (
	kindString = "string"
	kindBool   = "bool"
	kindInt    = "int64"
	kindDouble = "double"
)

func inferKind(records []lakehouse.Record, column string) string {
	for _, record := range records {
		switch record[column].(type) {
		case nil:
			continue
		case bool:
			return kindBool
		case int, int32, int64:
			return kindInt
		case float32, float64:
			return kindDouble
		default:
			return kindString
		}
	}
	return kindString
}

func leafNode(kind string) parquet.Node {
	switch kind {
	case kindBool:
		return parquet.Leaf(parquet.BooleanType)
	case kindInt:
		return parquet.Int(64)
	case kindDouble:
		return parquet.Leaf(parquet.DoubleType)
	default:
		return parquet.String()
	}
}

func coerceToKind(value any, kind string) (any, error) {
	switch kind {
	case kindBool:
		if v, ok := value.(bool); ok {
			return v, nil
		}
	case kindInt:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			return int64(v), nil
		}
	case kindDouble:
		switch v := value.(type) {
		case float32:
			return float64(v), nil
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case int:
			return float64(v), nil
		}
	case kindString:
		return renderCell(value), nil
	}
	return nil, fmt.Errorf("value %v (%T) does not fit %s column", value, value, kind)
}
