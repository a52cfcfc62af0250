package schema

// ColumnType is the closed set of column types the gauntlet understands.
type ColumnType string

const (
	TypeInteger ColumnType = "INTEGER"
	TypeDecimal ColumnType = "DECIMAL"
	TypeVarchar ColumnType = "VARCHAR"
	TypeDate    ColumnType = "DATE"
	TypeBoolean ColumnType = "BOOLEAN"
)

// KnownTypes lists every valid ColumnType, in declaration order.
var KnownTypes = []ColumnType{TypeInteger, TypeDecimal, TypeVarchar, TypeDate, TypeBoolean}

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeInteger, TypeDecimal, TypeVarchar, TypeDate, TypeBoolean:
		return true
	}
	return false
}

// Numeric reports whether t participates in numeric comparisons.
// INTEGER and DECIMAL are mutually comparable; nothing else is numeric.
func (t ColumnType) Numeric() bool {
	return t == TypeInteger || t == TypeDecimal
}

// CompatibleWith reports whether columns of type t and other may be
// compared or joined. Identical types are compatible; INTEGER and
// DECIMAL are compatible with each other.
func (t ColumnType) CompatibleWith(other ColumnType) bool {
	if t == other {
		return true
	}
	return t.Numeric() && other.Numeric()
}

// Column is a single table column.
type Column struct {
	Name     string     `yaml:"name"`
	Type     ColumnType `yaml:"type"`
	Nullable bool       `yaml:"nullable"`
}

// ForeignKey declares that Column references ReferencedTable.ReferencedColumn.
type ForeignKey struct {
	Column           string `yaml:"column"`
	ReferencedTable  string `yaml:"referenced_table"`
	ReferencedColumn string `yaml:"referenced_column"`
}

// Table is a named, ordered collection of columns plus key metadata.
type Table struct {
	Name        string       `yaml:"name"`
	Columns     []Column     `yaml:"columns"`
	PrimaryKey  []string     `yaml:"primary_key,omitempty"`
	ForeignKeys []ForeignKey `yaml:"foreign_keys,omitempty"`
}

// Column returns the column with the given name (case-insensitive),
// or nil if the table has no such column.
func (t *Table) Column(name string) *Column {
	folded := Fold(name)
	for i := range t.Columns {
		if Fold(t.Columns[i].Name) == folded {
			return &t.Columns[i]
		}
	}
	return nil
}

// Graph is the schema graph: the complete set of tables visible to a
// validation request. Read-only after Verify.
type Graph struct {
	Name   string  `yaml:"name,omitempty"`
	Tables []Table `yaml:"tables"`
}

// Table returns the table with the given name (case-insensitive),
// or nil if the graph has no such table.
func (g *Graph) Table(name string) *Table {
	folded := Fold(name)
	for i := range g.Tables {
		if Fold(g.Tables[i].Name) == folded {
			return &g.Tables[i]
		}
	}
	return nil
}
