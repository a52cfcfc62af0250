// Package testutil provides shared fixtures for the gauntlet test
// suites.
package testutil

import "github.com/safequery/safequery/internal/schema"

// HRGraph returns a fresh copy of the employees/departments schema used
// across the validation tests. Callers may mutate it freely.
func HRGraph() *schema.Graph {
	return &schema.Graph{
		Name: "hr",
		Tables: []schema.Table{
			{
				Name: "employees",
				Columns: []schema.Column{
					{Name: "emp_id", Type: schema.TypeInteger},
					{Name: "name", Type: schema.TypeVarchar, Nullable: true},
					{Name: "age", Type: schema.TypeInteger, Nullable: true},
					{Name: "salary", Type: schema.TypeDecimal, Nullable: true},
					{Name: "hired_on", Type: schema.TypeDate, Nullable: true},
					{Name: "active", Type: schema.TypeBoolean},
					{Name: "department_id", Type: schema.TypeInteger, Nullable: true},
				},
				PrimaryKey: []string{"emp_id"},
				ForeignKeys: []schema.ForeignKey{
					{Column: "department_id", ReferencedTable: "departments", ReferencedColumn: "dept_id"},
				},
			},
			{
				Name: "departments",
				Columns: []schema.Column{
					{Name: "dept_id", Type: schema.TypeInteger},
					{Name: "dept_name", Type: schema.TypeVarchar},
				},
				PrimaryKey: []string{"dept_id"},
			},
		},
	}
}
