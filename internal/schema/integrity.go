package schema

import (
	"fmt"
	"strings"
)

// IntegrityError reports structural defects in a schema graph.
//
// Integrity is a load-time invariant, not a per-request check: a graph
// that fails Verify is a programming/configuration error and must never
// reach the gauntlet, so these defects are never surfaced as query
// validation failures.
type IntegrityError struct {
	Graph    string
	Problems []string
}

func (e *IntegrityError) Error() string {
	name := e.Graph
	if name == "" {
		name = "schema"
	}
	return fmt.Sprintf("%s integrity: %s", name, strings.Join(e.Problems, "; "))
}

// Verify checks the graph invariants:
//   - table names unique within the graph
//   - column names unique within each table
//   - column types drawn from the known set
//   - every foreign key resolves to an existing table and column
//   - primary-key columns exist in their table and are non-nullable
//
// All problems are collected into a single IntegrityError; a nil return
// means the graph is safe to hand to the validation pipeline.
func Verify(g *Graph) error {
	var problems []string

	seenTables := make(map[string]bool, len(g.Tables))
	for ti := range g.Tables {
		tbl := &g.Tables[ti]
		folded := Fold(tbl.Name)
		if tbl.Name == "" {
			problems = append(problems, fmt.Sprintf("table %d has an empty name", ti))
			continue
		}
		if seenTables[folded] {
			problems = append(problems, fmt.Sprintf("duplicate table name %q", tbl.Name))
			continue
		}
		seenTables[folded] = true

		seenCols := make(map[string]bool, len(tbl.Columns))
		for _, col := range tbl.Columns {
			if col.Name == "" {
				problems = append(problems, fmt.Sprintf("table %q has a column with an empty name", tbl.Name))
				continue
			}
			cf := Fold(col.Name)
			if seenCols[cf] {
				problems = append(problems, fmt.Sprintf("table %q: duplicate column name %q", tbl.Name, col.Name))
			}
			seenCols[cf] = true
			if !col.Type.Valid() {
				problems = append(problems, fmt.Sprintf("table %q: column %q has unknown type %q", tbl.Name, col.Name, col.Type))
			}
		}

		for _, pk := range tbl.PrimaryKey {
			col := tbl.Column(pk)
			if col == nil {
				problems = append(problems, fmt.Sprintf("table %q: primary key column %q does not exist", tbl.Name, pk))
				continue
			}
			if col.Nullable {
				problems = append(problems, fmt.Sprintf("table %q: primary key column %q is nullable", tbl.Name, pk))
			}
		}
	}

	// Foreign keys are checked in a second pass so references to tables
	// declared later in the file still resolve.
	for ti := range g.Tables {
		tbl := &g.Tables[ti]
		for _, fk := range tbl.ForeignKeys {
			if tbl.Column(fk.Column) == nil {
				problems = append(problems, fmt.Sprintf("table %q: foreign key column %q does not exist", tbl.Name, fk.Column))
			}
			ref := g.Table(fk.ReferencedTable)
			if ref == nil {
				problems = append(problems, fmt.Sprintf("table %q: foreign key references unknown table %q", tbl.Name, fk.ReferencedTable))
				continue
			}
			if ref.Column(fk.ReferencedColumn) == nil {
				problems = append(problems, fmt.Sprintf("table %q: foreign key references unknown column %q.%q", tbl.Name, fk.ReferencedTable, fk.ReferencedColumn))
			}
		}
	}

	if len(problems) > 0 {
		return &IntegrityError{Graph: g.Name, Problems: problems}
	}
	return nil
}
