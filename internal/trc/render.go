package trc

import (
	"fmt"
	"strings"

	"github.com/safequery/safequery/internal/sqlast"
)

// Operator precedence for symbolic rendering: ¬ binds tighter than ∧,
// which binds tighter than ∨. Atoms and quantifiers never need parens
// (quantifier bodies are always parenthesized).
const (
	precOr = iota + 1
	precAnd
	precNot
	precAtom
)

// Render produces the canonical symbolic form of a query:
//
//	{t | t∈employees ∧ t.age > 30}
//	{⟨t0.name, t1.dept_name⟩ | t0∈employees ∧ t1∈departments ∧ t0.department_id = t1.dept_id}
//
// Rendering is total and deterministic; RenderFormula of the body
// round-trips through ParseFormula.
func Render(q *Query) string {
	var sb strings.Builder
	sb.WriteString("{")
	sb.WriteString(renderHead(q))
	sb.WriteString(" | ")
	if q.Body != nil {
		sb.WriteString(RenderFormula(q.Body))
	}
	sb.WriteString("}")
	return sb.String()
}

func renderHead(q *Query) string {
	if q.FreeVar != "" {
		return q.FreeVar
	}
	parts := make([]string, len(q.Projections))
	for i, p := range q.Projections {
		parts[i] = p.Var + "." + p.Attr
	}
	return "⟨" + strings.Join(parts, ", ") + "⟩"
}

// RenderFormula produces the canonical symbolic notation for a formula.
func RenderFormula(f Formula) string {
	return renderPrec(f, precOr)
}

// renderPrec renders f, parenthesizing when its precedence is below the
// context. Binary connectives are left-associative, so a right operand
// at the same level is parenthesized to preserve structure.
func renderPrec(f Formula, min int) string {
	switch node := f.(type) {
	case *RelationAtom:
		return node.Var + "∈" + node.Table
	case *AttrComparison:
		return fmt.Sprintf("%s.%s %s %s", node.Var, node.Attr, node.Op, renderTerm(node.Right))
	case *And:
		s := renderPrec(node.Left, precAnd) + " ∧ " + renderPrec(node.Right, precAnd+1)
		if precAnd < min {
			return "(" + s + ")"
		}
		return s
	case *Or:
		s := renderPrec(node.Left, precOr) + " ∨ " + renderPrec(node.Right, precOr+1)
		if precOr < min {
			return "(" + s + ")"
		}
		return s
	case *Not:
		return "¬" + renderPrec(node.Inner, precNot)
	case *Exists:
		return "∃" + node.Var + " (" + renderPrec(node.Body, precOr) + ")"
	case *ForAll:
		return "∀" + node.Var + " (" + renderPrec(node.Body, precOr) + ")"
	}
	return ""
}

func renderTerm(t Term) string {
	switch term := t.(type) {
	case *AttrTerm:
		return term.Var + "." + term.Attr
	case *ValueTerm:
		if term.Kind == sqlast.LitString {
			return "'" + strings.ReplaceAll(term.Raw, "'", "''") + "'"
		}
		return term.Raw
	}
	return ""
}
