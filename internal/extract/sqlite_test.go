package extract

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safequery/safequery/internal/schema"
)

func createTestDB(t *testing.T, ddl string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(ddl)
	require.NoError(t, err)
	return path
}

func TestFromSQLite_ColumnsAndKeys(t *testing.T) {
	path := createTestDB(t, `
		CREATE TABLE departments (
			dept_id INTEGER PRIMARY KEY,
			dept_name TEXT NOT NULL
		);
		CREATE TABLE employees (
			emp_id INTEGER PRIMARY KEY,
			name TEXT,
			age INT,
			salary NUMERIC,
			hired_on DATE,
			active BOOLEAN NOT NULL,
			department_id INTEGER REFERENCES departments(dept_id)
		);
	`)

	g, err := FromSQLite(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, g.Tables, 2)
	// sqlite_master is walked in name order.
	assert.Equal(t, "departments", g.Tables[0].Name)
	assert.Equal(t, "employees", g.Tables[1].Name)

	emp := g.Table("employees")
	require.NotNil(t, emp)
	assert.Equal(t, []string{"emp_id"}, emp.PrimaryKey)

	assert.Equal(t, schema.TypeInteger, emp.Column("emp_id").Type)
	assert.Equal(t, schema.TypeVarchar, emp.Column("name").Type)
	assert.Equal(t, schema.TypeInteger, emp.Column("age").Type)
	assert.Equal(t, schema.TypeDecimal, emp.Column("salary").Type)
	assert.Equal(t, schema.TypeDate, emp.Column("hired_on").Type)
	assert.Equal(t, schema.TypeBoolean, emp.Column("active").Type)

	assert.False(t, emp.Column("emp_id").Nullable, "primary key is never nullable")
	assert.True(t, emp.Column("name").Nullable)
	assert.False(t, emp.Column("active").Nullable)

	require.Len(t, emp.ForeignKeys, 1)
	fk := emp.ForeignKeys[0]
	assert.Equal(t, "department_id", fk.Column)
	assert.Equal(t, "departments", fk.ReferencedTable)
	assert.Equal(t, "dept_id", fk.ReferencedColumn)
}

func TestFromSQLite_InternalTablesSkipped(t *testing.T) {
	path := createTestDB(t, `
		CREATE TABLE items (item_id INTEGER PRIMARY KEY, label TEXT);
		CREATE INDEX idx_items_label ON items(label);
	`)

	g, err := FromSQLite(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, g.Tables, 1)
	assert.Equal(t, "items", g.Tables[0].Name)
}

func TestFromSQLite_ExtractedGraphPassesVerify(t *testing.T) {
	path := createTestDB(t, `
		CREATE TABLE a (id INTEGER PRIMARY KEY);
		CREATE TABLE b (
			id INTEGER PRIMARY KEY,
			a_id INTEGER REFERENCES a(id)
		);
	`)

	g, err := FromSQLite(context.Background(), path)
	require.NoError(t, err)
	assert.NoError(t, schema.Verify(g))
}

func TestFromSQLite_MissingFile(t *testing.T) {
	// sqlite3 creates missing files lazily; an unreadable path fails at ping.
	_, err := FromSQLite(context.Background(), filepath.Join(t.TempDir(), "no", "such", "dir.sqlite"))
	assert.Error(t, err)
}

func TestMapType_AffinityFolding(t *testing.T) {
	cases := map[string]schema.ColumnType{
		"INTEGER":      schema.TypeInteger,
		"int":          schema.TypeInteger,
		"BIGINT":       schema.TypeInteger,
		"BOOLEAN":      schema.TypeBoolean,
		"DATE":         schema.TypeDate,
		"DATETIME":     schema.TypeDate,
		"TIMESTAMP":    schema.TypeDate,
		"REAL":         schema.TypeDecimal,
		"DOUBLE":       schema.TypeDecimal,
		"NUMERIC":      schema.TypeDecimal,
		"DECIMAL(8,2)": schema.TypeDecimal,
		"TEXT":         schema.TypeVarchar,
		"VARCHAR(40)":  schema.TypeVarchar,
		"":             schema.TypeVarchar,
	}
	for decl, want := range cases {
		assert.Equal(t, want, mapType(decl), decl)
	}
}
