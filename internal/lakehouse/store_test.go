package lakehouse

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "lakehouse.db"))
}

func TestCreateTableAppendsSystemColumns(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	err := store.CreateTable(ctx, "sales", []ColumnSpec{
		{Name: "name", Type: "VARCHAR"},
		{Name: "total", Type: "DOUBLE"},
	})
	if err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	columns, ok := store.GetSchema(ctx, "sales")
	if !ok {
		t.Fatal("GetSchema() ok = false")
	}
	names := map[string]bool{}
	for _, col := range columns {
		names[col.Name] = true
	}
	for _, want := range []string{"name", "total", IngestedAtColumn, RawDataColumn} {
		if !names[want] {
			t.Fatalf("schema missing column %q (got %v)", want, columns)
		}
	}
}

func TestCreateTableIsIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	cols := []ColumnSpec{{Name: "id", Type: "INTEGER"}}

	if err := store.CreateTable(ctx, "items", cols); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	if err := store.CreateTable(ctx, "items", cols); err != nil {
		t.Fatalf("CreateTable() second call error = %v", err)
	}

	columns, ok := store.GetSchema(ctx, "items")
	if !ok {
		t.Fatal("GetSchema() ok = false")
	}
	if len(columns) != 3 {
		t.Fatalf("column count = %d, want 3 (no duplicates)", len(columns))
	}
}

func TestCreateTableRejectsInvalidTypeToken(t *testing.T) {
	store := testStore(t)
	err := store.CreateTable(context.Background(), "bad", []ColumnSpec{{Name: "x", Type: "NOT_A_TYPE"}})
	if err == nil {
		t.Fatal("expected DDL error for invalid type token")
	}
}

func TestLoadDataCountsRows(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	err := store.CreateTable(ctx, "sales", []ColumnSpec{
		{Name: "name", Type: "VARCHAR"},
		{Name: "total", Type: "DOUBLE"},
	})
	if err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	records := []Record{
		{"name": "alpha", "total": 10.5},
		{"name": "beta", "total": 20.0},
		{"name": "gamma", "total": 30.25},
	}
	if err := store.LoadData(ctx, "sales", records); err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}

	tables := store.ListTables(ctx)
	if len(tables) != 1 {
		t.Fatalf("ListTables() = %v", tables)
	}
	if tables[0].TableName != "sales" || tables[0].RowCount != 3 {
		t.Fatalf("ListTables()[0] = %+v, want sales with 3 rows", tables[0])
	}
}

func TestLoadDataIncrementsCountExactly(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.CreateTable(ctx, "t", []ColumnSpec{{Name: "v", Type: "INTEGER"}}); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	if err := store.LoadData(ctx, "t", []Record{{"v": 1.0}, {"v": 2.0}}); err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	if err := store.LoadData(ctx, "t", []Record{{"v": 3.0}}); err != nil {
		t.Fatalf("LoadData() second call error = %v", err)
	}

	tables := store.ListTables(ctx)
	if len(tables) != 1 || tables[0].RowCount != 3 {
		t.Fatalf("ListTables() = %v, want one table with 3 rows", tables)
	}
}

func TestLoadDataEvolvesSchemaForUnseenColumns(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.CreateTable(ctx, "orders", []ColumnSpec{{Name: "order_id", Type: "INTEGER"}}); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}

	records := []Record{
		{"order_id": 1.0},
		{"order_id": 2.0, "note": "rush"},
	}
	if err := store.LoadData(ctx, "orders", records); err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}

	columns, ok := store.GetSchema(ctx, "orders")
	if !ok {
		t.Fatal("GetSchema() ok = false")
	}
	var noteType string
	for _, col := range columns {
		if col.Name == "note" {
			noteType = col.Type
		}
	}
	if noteType != "VARCHAR" {
		t.Fatalf("evolved column type = %q, want VARCHAR", noteType)
	}

	result, err := store.Execute(ctx, `SELECT note FROM orders WHERE order_id = 1`)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0][0] != nil {
		t.Fatalf("missing column value = %#v, want null", result.Rows)
	}
}

func TestLoadDataWritesRawDataSnapshot(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.CreateTable(ctx, "t", []ColumnSpec{{Name: "name", Type: "VARCHAR"}}); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	if err := store.LoadData(ctx, "t", []Record{{"name": "alpha"}}); err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}

	result, err := store.Execute(ctx, fmt.Sprintf(`SELECT %s, %s FROM t`, RawDataColumn, IngestedAtColumn))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("rows = %d", len(result.Rows))
	}
	raw, ok := result.Rows[0][0].(string)
	if !ok || raw != `{"name":"alpha"}` {
		t.Fatalf("raw_data = %#v", result.Rows[0][0])
	}
	if result.Rows[0][1] == nil {
		t.Fatal("_ingested_at is null")
	}
}

func TestNormalizeValuesEncodesCompositesAsJSONText(t *testing.T) {
	got := normalizeValues([]any{
		map[string]any{"name": "alpha"},
		[]any{int64(1), "x"},
		[]byte("raw"),
		int64(7),
		nil,
	})
	if got[0] != `{"name":"alpha"}` {
		t.Fatalf("map value = %#v", got[0])
	}
	if got[1] != `[1,"x"]` {
		t.Fatalf("slice value = %#v", got[1])
	}
	if got[2] != "raw" {
		t.Fatalf("bytes value = %#v", got[2])
	}
	if got[3] != int64(7) || got[4] != nil {
		t.Fatalf("scalar values = %#v", got[3:])
	}
}

func TestLoadDataNoOpOnEmptyInput(t *testing.T) {
	store := testStore(t)
	if err := store.LoadData(context.Background(), "nope", nil); err != nil {
		t.Fatalf("LoadData() error = %v, want nil for empty input", err)
	}
}

func TestExecuteReturnsErrorValueForInvalidSQL(t *testing.T) {
	store := testStore(t)
	_, err := store.Execute(context.Background(), "SELEKT broken FROM nowhere")
	if err == nil {
		t.Fatal("expected descriptive error for invalid SQL")
	}
}

func TestGetSchemaAbsentForUnknownTable(t *testing.T) {
	store := testStore(t)
	if _, ok := store.GetSchema(context.Background(), "missing"); ok {
		t.Fatal("GetSchema() ok = true for unknown table")
	}
}

func TestDropTableIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if !store.DropTable(ctx, "never_existed") {
		t.Fatal("DropTable() = false for missing table, want success")
	}

	if err := store.CreateTable(ctx, "t", []ColumnSpec{{Name: "v", Type: "INTEGER"}}); err != nil {
		t.Fatalf("CreateTable() error = %v", err)
	}
	if !store.DropTable(ctx, "t") {
		t.Fatal("DropTable() = false")
	}
	if _, ok := store.GetSchema(ctx, "t"); ok {
		t.Fatal("schema still present after drop")
	}
}

func TestDropAllRemovesEveryTable(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		if err := store.CreateTable(ctx, name, []ColumnSpec{{Name: "v", Type: "INTEGER"}}); err != nil {
			t.Fatalf("CreateTable(%q) error = %v", name, err)
		}
	}
	if !store.DropAll(ctx) {
		t.Fatal("DropAll() = false")
	}
	if tables := store.ListTables(ctx); len(tables) != 0 {
		t.Fatalf("ListTables() after DropAll = %v", tables)
	}
}

func TestListTablesEmptyOnEnumerationFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WillReturnError(fmt.Errorf("catalog unavailable"))

	store := NewStoreWithOpener("", func() (*sql.DB, error) { return db, nil })
	if tables := store.ListTables(context.Background()); len(tables) != 0 {
		t.Fatalf("ListTables() = %v, want empty on failure", tables)
	}
}

func TestGetSchemaAbsentOnLookupFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	mock.ExpectQuery("SELECT column_name, data_type FROM information_schema.columns").
		WillReturnError(fmt.Errorf("connection reset"))

	store := NewStoreWithOpener("", func() (*sql.DB, error) { return db, nil })
	if _, ok := store.GetSchema(context.Background(), "t"); ok {
		t.Fatal("GetSchema() ok = true, want absent on lookup failure")
	}
}
