// Package semantic implements stage 2 of the gauntlet: resolving every
// table and column reference in a parsed statement against the schema
// graph and checking type compatibility of joins and comparisons.
//
// All errors are collected in a single pass rather than
// short-circuiting, so one request reports every unresolved reference
// at once. Validation is a pure function of (statement, graph) with no
// retained state.
package semantic

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/safequery/safequery/internal/schema"
	"github.com/safequery/safequery/internal/sqlast"
)

// ErrorCode categorizes semantic errors.
type ErrorCode string

const (
	CodeUnknownTable    ErrorCode = "UNKNOWN_TABLE"
	CodeUnknownColumn   ErrorCode = "UNKNOWN_COLUMN"
	CodeAmbiguousColumn ErrorCode = "AMBIGUOUS_COLUMN"
	CodeTypeMismatch    ErrorCode = "TYPE_MISMATCH"
)

// Error is one semantic defect, positioned at the offending reference.
type Error struct {
	Code    ErrorCode
	Pos     sqlast.Pos
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Code, e.Message)
}

// Validate checks a statement against the schema graph and returns every
// semantic error found, in source order. An empty slice means stage 2
// passes.
func Validate(stmt sqlast.Statement, g *schema.Graph) []*Error {
	v := &validator{graph: g}
	switch s := stmt.(type) {
	case *sqlast.Select:
		v.validateSelect(s)
	case *sqlast.Write:
		v.validateWrite(s)
	}
	return v.errs
}

// scopeEntry is one table visible to column resolution, under its alias
// or bare name.
type scopeEntry struct {
	name  string // alias if present, else table name
	table *schema.Table
}

type validator struct {
	graph *schema.Graph
	scope []scopeEntry
	errs  []*Error
}

func (v *validator) addError(code ErrorCode, pos sqlast.Pos, format string, args ...any) {
	v.errs = append(v.errs, &Error{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) validateSelect(sel *sqlast.Select) {
	// Bind the scope first so later column resolution sees every table
	// regardless of clause order.
	for _, ref := range sel.Tables() {
		tbl := v.graph.Table(ref.Table)
		if tbl == nil {
			v.addError(CodeUnknownTable, ref.Pos, "table %q does not exist in the schema", ref.Table)
			continue
		}
		v.scope = append(v.scope, scopeEntry{name: ref.Name(), table: tbl})
	}

	for _, proj := range sel.Projections {
		v.validateExpr(proj)
	}
	for _, join := range sel.Joins {
		v.validatePredicate(join.On)
	}
	if sel.Where != nil {
		v.validatePredicate(sel.Where)
	}
	// GROUP BY / HAVING / ORDER BY references still resolve so a query
	// rejected for unsupported clauses also reports its bad references.
	for _, e := range sel.GroupBy {
		v.validateExpr(e)
	}
	if sel.Having != nil {
		v.validatePredicate(sel.Having)
	}
	for _, e := range sel.OrderBy {
		v.validateExpr(e)
	}
}

// validateWrite resolves the target table only. A grammatical write
// against an existing table passes stage 2 and is rejected by the
// safety checker, keeping each stage's verdict about its own concern.
func (v *validator) validateWrite(w *sqlast.Write) {
	if v.graph.Table(w.Table) == nil {
		v.addError(CodeUnknownTable, w.Pos, "table %q does not exist in the schema", w.Table)
	}
}

func (v *validator) validatePredicate(p sqlast.Predicate) {
	switch pred := p.(type) {
	case *sqlast.Comparison:
		v.validateComparison(pred)
	case *sqlast.And:
		v.validatePredicate(pred.Left)
		v.validatePredicate(pred.Right)
	case *sqlast.Or:
		v.validatePredicate(pred.Left)
		v.validatePredicate(pred.Right)
	case *sqlast.Not:
		v.validatePredicate(pred.Inner)
	}
}

func (v *validator) validateExpr(e sqlast.Expr) {
	switch expr := e.(type) {
	case *sqlast.ColumnRef:
		v.resolveColumn(expr)
	case *sqlast.Aggregate:
		// The aggregate itself is rejected at stage 3; its argument is
		// still resolved so bad references inside it are reported here.
		if expr.Arg != nil {
			v.validateExpr(expr.Arg)
		}
	case *sqlast.Star:
		if len(v.scope) > 1 {
			v.addError(CodeAmbiguousColumn, expr.Position(),
				"* is ambiguous with %d tables in scope; qualify the projection", len(v.scope))
		}
	case *sqlast.Literal:
		// Nothing to resolve.
	}
}

// resolveColumn resolves a column reference and returns its column
// definition, or nil if resolution failed (the error is recorded).
func (v *validator) resolveColumn(ref *sqlast.ColumnRef) *schema.Column {
	if ref.Table != "" {
		folded := schema.Fold(ref.Table)
		for _, entry := range v.scope {
			if schema.Fold(entry.name) != folded {
				continue
			}
			col := entry.table.Column(ref.Column)
			if col == nil {
				v.addError(CodeUnknownColumn, ref.Pos, "column %q does not exist in table %q", ref.Column, entry.table.Name)
			}
			return col
		}
		v.addError(CodeUnknownTable, ref.Pos, "qualifier %q does not match any table in the query", ref.Table)
		return nil
	}

	var found *schema.Column
	var candidates []string
	for _, entry := range v.scope {
		if col := entry.table.Column(ref.Column); col != nil {
			found = col
			candidates = append(candidates, entry.table.Name)
		}
	}
	switch len(candidates) {
	case 0:
		v.addError(CodeUnknownColumn, ref.Pos, "column %q does not exist in any table in scope", ref.Column)
		return nil
	case 1:
		return found
	default:
		v.addError(CodeAmbiguousColumn, ref.Pos, "column %q is ambiguous: present in tables %s",
			ref.Column, strings.Join(candidates, ", "))
		return nil
	}
}

func (v *validator) validateComparison(cmp *sqlast.Comparison) {
	leftCol := v.columnOf(cmp.Left)
	rightCol := v.columnOf(cmp.Right)
	leftLit, leftIsLit := cmp.Left.(*sqlast.Literal)
	rightLit, rightIsLit := cmp.Right.(*sqlast.Literal)

	switch {
	case leftCol != nil && rightCol != nil:
		if !leftCol.Type.CompatibleWith(rightCol.Type) {
			v.addError(CodeTypeMismatch, cmp.Pos, "cannot compare %s column %q with %s column %q",
				leftCol.Type, leftCol.Name, rightCol.Type, rightCol.Name)
		}
	case leftCol != nil && rightIsLit:
		v.checkLiteral(leftCol, rightLit, cmp.Pos)
	case rightCol != nil && leftIsLit:
		v.checkLiteral(rightCol, leftLit, cmp.Pos)
	case leftIsLit && rightIsLit:
		if leftLit.Kind != rightLit.Kind {
			v.addError(CodeTypeMismatch, cmp.Pos, "cannot compare %s literal with %s literal",
				strings.ToLower(string(leftLit.Kind)), strings.ToLower(string(rightLit.Kind)))
		}
	}
	// A side that failed to resolve already produced its own error;
	// no mismatch is stacked on top of it.
}

// columnOf resolves the column definition behind an expression, also
// recording resolution errors for column references.
func (v *validator) columnOf(e sqlast.Expr) *schema.Column {
	switch expr := e.(type) {
	case *sqlast.ColumnRef:
		return v.resolveColumn(expr)
	case *sqlast.Aggregate:
		v.validateExpr(expr)
		return nil
	default:
		return nil
	}
}

// checkLiteral verifies a literal is parseable as the column's type.
func (v *validator) checkLiteral(col *schema.Column, lit *sqlast.Literal, pos sqlast.Pos) {
	if literalFits(col.Type, lit) {
		return
	}
	v.addError(CodeTypeMismatch, pos, "literal %q is not a valid %s for column %q", lit.Raw, col.Type, col.Name)
}

func literalFits(t schema.ColumnType, lit *sqlast.Literal) bool {
	switch t {
	case schema.TypeInteger:
		if lit.Kind != sqlast.LitNumber || strings.Contains(lit.Raw, ".") {
			return false
		}
		_, err := strconv.ParseInt(lit.Raw, 10, 64)
		return err == nil
	case schema.TypeDecimal:
		if lit.Kind != sqlast.LitNumber {
			return false
		}
		_, err := strconv.ParseFloat(lit.Raw, 64)
		return err == nil
	case schema.TypeVarchar:
		return lit.Kind == sqlast.LitString
	case schema.TypeDate:
		if lit.Kind != sqlast.LitString {
			return false
		}
		_, err := time.Parse("2006-01-02", lit.Raw)
		return err == nil
	case schema.TypeBoolean:
		return lit.Kind == sqlast.LitBool
	}
	return false
}
