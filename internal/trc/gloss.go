package trc

import (
	"strings"

	"github.com/safequery/safequery/internal/sqlast"
)

// Gloss renders a query as a compositional English reading of the
// formula. The gloss is lossy by design: it is the explanation surface
// for end users and is never parsed back.
func Gloss(q *Query) string {
	head := glossHead(q)
	if q.Body == nil {
		return head
	}
	return head + " such that " + glossFormula(q.Body)
}

func glossHead(q *Query) string {
	if q.FreeVar != "" {
		if len(q.Projections) == 0 {
			return "every row " + q.FreeVar
		}
		attrs := make([]string, len(q.Projections))
		for i, p := range q.Projections {
			attrs[i] = p.Attr
		}
		return "the " + strings.Join(attrs, " and ") + " of each row " + q.FreeVar
	}
	parts := make([]string, len(q.Projections))
	for i, p := range q.Projections {
		parts[i] = p.Var + "." + p.Attr
	}
	return "each combination of " + strings.Join(parts, " and ")
}

func glossFormula(f Formula) string {
	switch node := f.(type) {
	case *RelationAtom:
		return node.Var + " is a row of " + node.Table
	case *AttrComparison:
		return node.Var + "." + node.Attr + " " + glossOp(node.Op) + " " + glossTerm(node.Right)
	case *And:
		return glossFormula(node.Left) + " and " + glossFormula(node.Right)
	case *Or:
		return "either " + glossFormula(node.Left) + " or " + glossFormula(node.Right)
	case *Not:
		return "it is not the case that " + glossFormula(node.Inner)
	case *Exists:
		return "there exists a row " + node.Var + " such that " + glossFormula(node.Body)
	case *ForAll:
		return "for every row " + node.Var + ", " + glossFormula(node.Body)
	}
	return ""
}

func glossOp(op sqlast.CompareOp) string {
	switch op {
	case sqlast.OpEq:
		return "equals"
	case sqlast.OpNe:
		return "does not equal"
	case sqlast.OpLt:
		return "is less than"
	case sqlast.OpGt:
		return "is greater than"
	case sqlast.OpLe:
		return "is at most"
	case sqlast.OpGe:
		return "is at least"
	}
	return string(op)
}

func glossTerm(t Term) string {
	switch term := t.(type) {
	case *AttrTerm:
		return term.Var + "." + term.Attr
	case *ValueTerm:
		if term.Kind == sqlast.LitString {
			return "'" + term.Raw + "'"
		}
		return term.Raw
	}
	return ""
}
