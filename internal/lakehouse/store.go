package lakehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// OpenFunc produces a database handle. The store opens a fresh handle per
// operation and closes it before returning, so no connection state is shared
// between calls.
type OpenFunc func() (*sql.DB, error)

// Store binds the lakehouse operations to one database file.
type Store struct {
	path string
	open OpenFunc
}

func NewStore(path string) *Store {
	return &Store{
		path: path,
		open: func() (*sql.DB, error) {
			return sql.Open("duckdb", path)
		},
	}
}

// NewStoreWithOpener is used by tests to substitute the database handle.
func NewStoreWithOpener(path string, open OpenFunc) *Store {
	return &Store{path: path, open: open}
}

func (s *Store) Path() string {
	return s.path
}

// CreateTable issues CREATE TABLE IF NOT EXISTS with the declared columns
// plus the two system columns. Column types are passed through as given; a
// type token the engine rejects comes back as an error.
func (s *Store) CreateTable(ctx context.Context, table string, columns []ColumnSpec) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("table name is required")
	}
	if len(columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}

	db, err := s.open()
	if err != nil {
		return fmt.Errorf("open lakehouse: %w", err)
	}
	defer func() { _ = db.Close() }()

	defs := make([]string, 0, len(columns)+2)
	for _, col := range columns {
		if strings.TrimSpace(col.Name) == "" {
			return fmt.Errorf("column name is required")
		}
		defs = append(defs, quoteIdent(col.Name)+" "+strings.ToUpper(strings.TrimSpace(col.Type)))
	}
	defs = append(defs,
		quoteIdent(IngestedAtColumn)+" TIMESTAMP DEFAULT current_timestamp",
		quoteIdent(RawDataColumn)+" JSON",
	)

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}
	return nil
}

// LoadData inserts records into table, stamping every row with one load
// timestamp and the raw JSON snapshot. Before inserting it diffs the records'
// key set against the table's columns and widens the table with nullable
// VARCHAR columns for unseen keys. Inserts match by column name, so source
// column order is irrelevant and absent columns become null.
func (s *Store) LoadData(ctx context.Context, table string, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	db, err := s.open()
	if err != nil {
		return fmt.Errorf("open lakehouse: %w", err)
	}
	defer func() { _ = db.Close() }()

	existing, err := tableColumnTypes(ctx, db, table)
	if err != nil {
		return fmt.Errorf("introspect table %q: %w", table, err)
	}
	if len(existing) == 0 {
		return fmt.Errorf("table %q does not exist", table)
	}

	for _, key := range unseenColumns(records, existing) {
		alter := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s VARCHAR", quoteIdent(table), quoteIdent(key))
		if _, err := db.ExecContext(ctx, alter); err != nil {
			// A lost add-column race is fine as long as the column is there now.
			recheck, recheckErr := tableColumnTypes(ctx, db, table)
			if recheckErr != nil {
				return fmt.Errorf("add column %q to %q: %w", key, table, err)
			}
			if _, ok := recheck[key]; !ok {
				return fmt.Errorf("add column %q to %q: %w", key, table, err)
			}
			existing = recheck
			continue
		}
		existing[key] = "VARCHAR"
	}

	ingestedAt := time.Now().UTC()
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode raw row: %w", err)
		}

		keys := recordColumns(record)
		columns := make([]string, 0, len(keys)+2)
		placeholders := make([]string, 0, len(keys)+2)
		args := make([]any, 0, len(keys)+2)
		for _, key := range keys {
			columns = append(columns, quoteIdent(key))
			placeholders = append(placeholders, "?")
			args = append(args, coerceValue(record[key], existing[key]))
		}
		columns = append(columns, quoteIdent(IngestedAtColumn), quoteIdent(RawDataColumn))
		placeholders = append(placeholders, "?", "?")
		args = append(args, ingestedAt, string(raw))

		insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			quoteIdent(table), strings.Join(columns, ", "), strings.Join(placeholders, ", "))
		if _, err := db.ExecContext(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert into %q: %w", table, err)
		}
	}
	return nil
}

// ListTables enumerates tables with live row counts. Enumeration failures
// degrade to an empty list so callers can keep rendering.
func (s *Store) ListTables(ctx context.Context) []TableInfo {
	db, err := s.open()
	if err != nil {
		return []TableInfo{}
	}
	defer func() { _ = db.Close() }()

	names, err := tableNames(ctx, db)
	if err != nil {
		return []TableInfo{}
	}

	tables := make([]TableInfo, 0, len(names))
	for _, name := range names {
		var count int64
		row := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(name)))
		if err := row.Scan(&count); err != nil {
			continue
		}
		tables = append(tables, TableInfo{TableName: name, RowCount: count})
	}
	return tables
}

// GetSchema returns the table's columns, or ok=false when the lookup fails
// for any reason (unknown table included). Absence is an expected outcome,
// not an error.
func (s *Store) GetSchema(ctx context.Context, table string) ([]ColumnInfo, bool) {
	db, err := s.open()
	if err != nil {
		return nil, false
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_name = ? ORDER BY ordinal_position`,
		table)
	if err != nil {
		return nil, false
	}
	defer func() { _ = rows.Close() }()

	columns := make([]ColumnInfo, 0)
	for rows.Next() {
		var col ColumnInfo
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return nil, false
		}
		columns = append(columns, col)
	}
	if rows.Err() != nil || len(columns) == 0 {
		return nil, false
	}
	return columns, true
}

// Execute runs one arbitrary SQL statement and returns the rows, or a
// descriptive error value for the caller to branch on. No whitelisting, no
// timeout, no row cap.
func (s *Store) Execute(ctx context.Context, sqlText string) (QueryResult, error) {
	if strings.TrimSpace(sqlText) == "" {
		return QueryResult{}, fmt.Errorf("sql is required")
	}

	db, err := s.open()
	if err != nil {
		return QueryResult{}, fmt.Errorf("open lakehouse: %w", err)
	}
	defer func() { _ = db.Close() }()

	start := time.Now()
	rows, err := db.QueryContext(ctx, sqlText)
	if err != nil {
		return QueryResult{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return QueryResult{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("iterate rows: %w", err)
	}

	return QueryResult{Columns: columns, Rows: resultRows, Duration: time.Since(start)}, nil
}

// DropTable removes a table. A missing table counts as success.
func (s *Store) DropTable(ctx context.Context, table string) bool {
	db, err := s.open()
	if err != nil {
		return false
	}
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table)))
	return err == nil
}

// DropAll removes every table in the database.
func (s *Store) DropAll(ctx context.Context) bool {
	db, err := s.open()
	if err != nil {
		return false
	}
	defer func() { _ = db.Close() }()

	names, err := tableNames(ctx, db)
	if err != nil {
		return false
	}
	for _, name := range names {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(name))); err != nil {
			return false
		}
	}
	return true
}

func tableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func tableColumnTypes(ctx context.Context, db *sql.DB, table string) (map[string]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns WHERE table_name = ?`,
		table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns := map[string]string{}
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return nil, err
		}
		columns[name] = dataType
	}
	return columns, rows.Err()
}

func unseenColumns(records []Record, existing map[string]string) []string {
	seen := map[string]struct{}{}
	missing := make([]string, 0)
	for _, record := range records {
		for key := range record {
			if _, ok := existing[key]; ok {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

func recordColumns(record Record) []string {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// coerceValue shapes a record value for insertion into a column of the given
// engine type. VARCHAR columns accept a rendered form of any scalar; nested
// values fall back to their JSON encoding.
func coerceValue(value any, columnType string) any {
	if value == nil {
		return nil
	}
	upperType := strings.ToUpper(columnType)
	switch typed := value.(type) {
	case string, bool, int, int32, int64, float32, float64, time.Time:
		if strings.HasPrefix(upperType, "VARCHAR") {
			if s, ok := typed.(string); ok {
				return s
			}
			return fmt.Sprintf("%v", typed)
		}
		// JSON numbers decode as float64; integral ones narrow cleanly.
		if f, ok := typed.(float64); ok && strings.Contains(upperType, "INT") && f == float64(int64(f)) {
			return int64(f)
		}
		return typed
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}
		return string(encoded)
	}
}

// normalizeValues flattens driver-specific value shapes. The duckdb driver
// materializes JSON-typed columns as Go maps and slices; callers expect the
// JSON text, so composites are re-encoded.
func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		case map[string]any, []any:
			encoded, err := json.Marshal(typed)
			if err != nil {
				normalized[i] = fmt.Sprintf("%v", typed)
				continue
			}
			normalized[i] = string(encoded)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
