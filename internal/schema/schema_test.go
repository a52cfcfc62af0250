package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const employeesYAML = `
name: hr
tables:
  - name: employees
    columns:
      - name: emp_id
        type: INTEGER
      - name: name
        type: VARCHAR
        nullable: true
      - name: age
        type: INTEGER
        nullable: true
      - name: department_id
        type: INTEGER
        nullable: true
    primary_key: [emp_id]
    foreign_keys:
      - column: department_id
        referenced_table: departments
        referenced_column: dept_id
  - name: departments
    columns:
      - name: dept_id
        type: INTEGER
      - name: dept_name
        type: VARCHAR
    primary_key: [dept_id]
`

func TestParse_ValidSchema(t *testing.T) {
	g, err := Parse("hr.yaml", []byte(employeesYAML))
	require.NoError(t, err)

	require.Len(t, g.Tables, 2)
	assert.Equal(t, "hr", g.Name)

	emp := g.Table("employees")
	require.NotNil(t, emp)
	assert.Len(t, emp.Columns, 4)
	assert.Equal(t, []string{"emp_id"}, emp.PrimaryKey)

	fk := emp.ForeignKeys[0]
	assert.Equal(t, "departments", fk.ReferencedTable)
	assert.Equal(t, "dept_id", fk.ReferencedColumn)
}

func TestParse_CaseInsensitiveLookup(t *testing.T) {
	g, err := Parse("hr.yaml", []byte(employeesYAML))
	require.NoError(t, err)

	assert.NotNil(t, g.Table("EMPLOYEES"))
	assert.NotNil(t, g.Table("Employees"))
	assert.Nil(t, g.Table("employes"))

	emp := g.Table("employees")
	assert.NotNil(t, emp.Column("NAME"))
	assert.Nil(t, emp.Column("salary"))
}

func TestParse_RejectsUnknownColumnType(t *testing.T) {
	doc := `
tables:
  - name: t
    columns:
      - name: c
        type: BLOB
`
	_, err := Parse("bad.yaml", []byte(doc))
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Error(), "bad.yaml")
}

func TestParse_RejectsNonYAML(t *testing.T) {
	_, err := Parse("bad.yaml", []byte("tables: [not: {valid"))
	require.Error(t, err)
}

func TestVerify_DanglingForeignKey(t *testing.T) {
	g := &Graph{Tables: []Table{
		{
			Name:    "orders",
			Columns: []Column{{Name: "customer_id", Type: TypeInteger}},
			ForeignKeys: []ForeignKey{
				{Column: "customer_id", ReferencedTable: "customers", ReferencedColumn: "id"},
			},
		},
	}}

	err := Verify(g)
	require.Error(t, err)

	var integrityErr *IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.Contains(t, integrityErr.Error(), "customers")
}

func TestVerify_NullablePrimaryKey(t *testing.T) {
	g := &Graph{Tables: []Table{
		{
			Name:       "t",
			Columns:    []Column{{Name: "id", Type: TypeInteger, Nullable: true}},
			PrimaryKey: []string{"id"},
		},
	}}

	err := Verify(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nullable")
}

func TestVerify_DuplicateColumn(t *testing.T) {
	g := &Graph{Tables: []Table{
		{
			Name: "t",
			Columns: []Column{
				{Name: "c", Type: TypeInteger},
				{Name: "C", Type: TypeVarchar},
			},
		},
	}}

	err := Verify(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column")
}

func TestVerify_CollectsAllProblems(t *testing.T) {
	g := &Graph{Tables: []Table{
		{
			Name:       "t",
			Columns:    []Column{{Name: "id", Type: TypeInteger, Nullable: true}},
			PrimaryKey: []string{"id", "missing"},
			ForeignKeys: []ForeignKey{
				{Column: "nope", ReferencedTable: "ghost", ReferencedColumn: "id"},
			},
		},
	}}

	err := Verify(g)
	require.Error(t, err)

	var integrityErr *IntegrityError
	require.ErrorAs(t, err, &integrityErr)
	assert.GreaterOrEqual(t, len(integrityErr.Problems), 3)
}

func TestColumnType_Compatibility(t *testing.T) {
	assert.True(t, TypeInteger.CompatibleWith(TypeInteger))
	assert.True(t, TypeInteger.CompatibleWith(TypeDecimal))
	assert.True(t, TypeDecimal.CompatibleWith(TypeInteger))
	assert.False(t, TypeInteger.CompatibleWith(TypeVarchar))
	assert.False(t, TypeDate.CompatibleWith(TypeBoolean))
}

func TestFold_Unicode(t *testing.T) {
	// Same name in composed and decomposed form.
	assert.Equal(t, Fold("café"), Fold("café"))
	assert.Equal(t, "employees", Fold("EMPLOYEES"))
}
