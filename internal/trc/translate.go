package trc

import (
	"fmt"

	"github.com/safequery/safequery/internal/schema"
	"github.com/safequery/safequery/internal/sqlast"
)

// IssueCode categorizes constructs the translator cannot render into a
// safe formula. Issues are consumed by the safety checker, not raised
// as errors here: translation itself is total.
type IssueCode string

const (
	IssueUnsupportedConstruct IssueCode = "UNSUPPORTED_CONSTRUCT"
	IssueUnsupportedJoinShape IssueCode = "UNSUPPORTED_JOIN_SHAPE"
)

// Issue is one construct flagged during translation.
type Issue struct {
	Code    IssueCode
	Pos     sqlast.Pos
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Pos, i.Code, i.Message)
}

// Translate compiles a SELECT into a TRC query. It is deterministic and
// pure: one fresh tuple variable per table reference in FROM-then-JOIN
// order (a single-table query names its variable t; multi-table queries
// use t0, t1, …), one relation atom per table, the join and WHERE
// predicates translated structurally into the conjunction.
//
// Outer joins are representable only through a disjunction with the
// negated existence of the unmatched side; when the nullable side's
// variable is read by a projection or the WHERE clause that disjunction
// cannot be range-restricted, so the construct is flagged as an
// UnsupportedJoinShape issue instead of emitting an unsafe formula.
//
// Translate assumes the statement already passed semantic validation;
// unresolved references are skipped rather than guessed at.
func Translate(sel *sqlast.Select, g *schema.Graph) (*Query, []Issue) {
	tr := &translator{graph: g}
	return tr.translate(sel)
}

// rangeVar is one tuple variable and the table it ranges over.
type rangeVar struct {
	name     string // alias or bare table name, for qualifier matching
	variable string
	table    *schema.Table
}

type translator struct {
	graph  *schema.Graph
	vars   []rangeVar
	issues []Issue
}

func (tr *translator) flag(code IssueCode, pos sqlast.Pos, format string, args ...any) {
	tr.issues = append(tr.issues, Issue{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (tr *translator) translate(sel *sqlast.Select) (*Query, []Issue) {
	refs := sel.Tables()
	for i, ref := range refs {
		variable := "t"
		if len(refs) > 1 {
			variable = fmt.Sprintf("t%d", i)
		}
		tr.vars = append(tr.vars, rangeVar{
			name:     ref.Name(),
			variable: variable,
			table:    tr.graph.Table(ref.Table),
		})
	}

	// Decide per-join whether the unmatched side can be expressed.
	// nullable[v] marks variables whose relation atom moves inside the
	// outer-join disjunction rather than the top-level conjunction.
	nullable := make(map[string]bool)
	type outerJoin struct {
		variable string
		join     sqlast.Join
	}
	var outers []outerJoin
	for ji, join := range sel.Joins {
		rightIdx := len(sel.From) + ji
		switch join.Kind {
		case sqlast.JoinInner:
			// Translated in the main conjunction below.
		case sqlast.JoinLeft:
			v := tr.vars[rightIdx].variable
			nullable[v] = true
			outers = append(outers, outerJoin{variable: v, join: join})
		case sqlast.JoinRight:
			// The preserved side is the joined table; the nullable side
			// is the FROM table. Expressible only in the two-table case.
			if len(refs) == 2 && len(sel.Joins) == 1 {
				v := tr.vars[0].variable
				nullable[v] = true
				outers = append(outers, outerJoin{variable: v, join: join})
			} else {
				tr.flag(IssueUnsupportedJoinShape, join.Pos,
					"RIGHT JOIN with %d tables cannot be range-restricted", len(refs))
			}
		case sqlast.JoinFull:
			tr.flag(IssueUnsupportedJoinShape, join.Pos,
				"FULL JOIN leaves both sides unmatched and cannot be range-restricted")
		}
	}

	// An outer join whose nullable side is read by a projection or the
	// WHERE clause has no safe translation: the variable would only be
	// bound inside the disjunction.
	for i := range outers {
		v := outers[i].variable
		if tr.usesVar(sel, v) {
			tr.flag(IssueUnsupportedJoinShape, outers[i].join.Pos,
				"the unmatched side of this outer join (variable %s) is read by the query and cannot be range-restricted", v)
			delete(nullable, v)
			outers[i].variable = "" // fall back to inner translation
		}
	}

	// Body: relation atoms, then join predicates, then WHERE.
	var body Formula
	for _, rv := range tr.vars {
		if rv.table == nil || nullable[rv.variable] {
			continue
		}
		body = conjoin(body, &RelationAtom{Var: rv.variable, Table: rv.table.Name})
	}
	for _, join := range sel.Joins {
		if join.Kind == sqlast.JoinInner {
			body = conjoin(body, tr.translatePredicate(join.On))
		}
	}
	for _, oj := range outers {
		if oj.variable == "" {
			// Flagged fallback: keep the inner-join shape so the formula
			// stays well-formed; the issue fails stage 3 regardless.
			body = conjoin(body, tr.translatePredicate(oj.join.On))
			continue
		}
		body = conjoin(body, tr.outerJoinFragment(oj.variable, oj.join))
	}
	if sel.Where != nil {
		body = conjoin(body, tr.translatePredicate(sel.Where))
	}

	q := &Query{Body: body}
	tr.translateProjections(sel, q)
	return q, tr.issues
}

// outerJoinFragment builds (∃v match) ∨ (¬∃v match) for the nullable
// side v of an outer join.
func (tr *translator) outerJoinFragment(v string, join sqlast.Join) Formula {
	match := func() Formula {
		var atom Formula
		for _, rv := range tr.vars {
			if rv.variable == v && rv.table != nil {
				atom = &RelationAtom{Var: v, Table: rv.table.Name}
			}
		}
		return conjoin(atom, tr.translatePredicate(join.On))
	}
	return &Or{
		Left:  &Exists{Var: v, Body: match()},
		Right: &Not{Inner: &Exists{Var: v, Body: match()}},
	}
}

// usesVar reports whether the projections or WHERE clause reference any
// column resolving to the given tuple variable.
func (tr *translator) usesVar(sel *sqlast.Select, v string) bool {
	used := false
	var checkExpr func(e sqlast.Expr)
	checkExpr = func(e sqlast.Expr) {
		switch expr := e.(type) {
		case *sqlast.ColumnRef:
			if rv := tr.resolve(expr); rv != nil && rv.variable == v {
				used = true
			}
		case *sqlast.Aggregate:
			if expr.Arg != nil {
				checkExpr(expr.Arg)
			}
		case *sqlast.Star:
			used = true // whole-tuple projection reads every table
		}
	}
	var checkPred func(p sqlast.Predicate)
	checkPred = func(p sqlast.Predicate) {
		switch pred := p.(type) {
		case *sqlast.Comparison:
			checkExpr(pred.Left)
			checkExpr(pred.Right)
		case *sqlast.And:
			checkPred(pred.Left)
			checkPred(pred.Right)
		case *sqlast.Or:
			checkPred(pred.Left)
			checkPred(pred.Right)
		case *sqlast.Not:
			checkPred(pred.Inner)
		}
	}
	for _, proj := range sel.Projections {
		checkExpr(proj)
	}
	if sel.Where != nil {
		checkPred(sel.Where)
	}
	return used
}

// resolve finds the range variable a column reference belongs to.
// Returns nil when the reference does not resolve; semantic validation
// has already reported that.
func (tr *translator) resolve(ref *sqlast.ColumnRef) *rangeVar {
	if ref.Table != "" {
		folded := schema.Fold(ref.Table)
		for i := range tr.vars {
			if schema.Fold(tr.vars[i].name) == folded {
				return &tr.vars[i]
			}
		}
		return nil
	}
	for i := range tr.vars {
		if tr.vars[i].table != nil && tr.vars[i].table.Column(ref.Column) != nil {
			return &tr.vars[i]
		}
	}
	return nil
}

func (tr *translator) translateProjections(sel *sqlast.Select, q *Query) {
	if len(tr.vars) == 0 {
		return
	}

	var projections []Projection
	varsSeen := make(map[string]bool)
	for _, proj := range sel.Projections {
		switch expr := proj.(type) {
		case *sqlast.Star:
			q.FreeVar = tr.vars[0].variable
			q.Projections = nil
			return
		case *sqlast.ColumnRef:
			rv := tr.resolve(expr)
			if rv == nil || rv.table == nil {
				continue
			}
			col := rv.table.Column(expr.Column)
			attr := expr.Column
			if col != nil {
				attr = col.Name
			}
			projections = append(projections, Projection{Var: rv.variable, Attr: attr})
			varsSeen[rv.variable] = true
		case *sqlast.Aggregate:
			tr.flag(IssueUnsupportedConstruct, expr.Pos, "aggregate %s() is not supported", expr.Fn)
		case *sqlast.Literal:
			tr.flag(IssueUnsupportedConstruct, expr.Pos, "literal projections are not supported")
		}
	}

	q.Projections = projections
	if len(varsSeen) == 1 {
		for v := range varsSeen {
			q.FreeVar = v
		}
	} else if len(varsSeen) == 0 {
		q.FreeVar = tr.vars[0].variable
	}
	// Projections spanning multiple variables leave FreeVar empty: the
	// head is the synthesized tuple of the projection list.
}

// translatePredicate maps the SQL predicate structure 1:1 onto formula
// connectives. Comparisons without any column reference have no
// attribute to anchor on and are flagged.
func (tr *translator) translatePredicate(p sqlast.Predicate) Formula {
	switch pred := p.(type) {
	case *sqlast.Comparison:
		return tr.translateComparison(pred)
	case *sqlast.And:
		return conjoin(tr.translatePredicate(pred.Left), tr.translatePredicate(pred.Right))
	case *sqlast.Or:
		left := tr.translatePredicate(pred.Left)
		right := tr.translatePredicate(pred.Right)
		if left == nil {
			return right
		}
		if right == nil {
			return left
		}
		return &Or{Left: left, Right: right}
	case *sqlast.Not:
		inner := tr.translatePredicate(pred.Inner)
		if inner == nil {
			return nil
		}
		return &Not{Inner: inner}
	}
	return nil
}

func (tr *translator) translateComparison(cmp *sqlast.Comparison) Formula {
	leftRef, leftIsRef := cmp.Left.(*sqlast.ColumnRef)
	rightRef, rightIsRef := cmp.Right.(*sqlast.ColumnRef)

	if agg, ok := cmp.Left.(*sqlast.Aggregate); ok {
		tr.flag(IssueUnsupportedConstruct, agg.Pos, "aggregate %s() is not supported", agg.Fn)
		return nil
	}
	if agg, ok := cmp.Right.(*sqlast.Aggregate); ok {
		tr.flag(IssueUnsupportedConstruct, agg.Pos, "aggregate %s() is not supported", agg.Fn)
		return nil
	}

	switch {
	case leftIsRef:
		rv := tr.resolve(leftRef)
		if rv == nil {
			return nil
		}
		var right Term
		if rightIsRef {
			rrv := tr.resolve(rightRef)
			if rrv == nil {
				return nil
			}
			right = &AttrTerm{Var: rrv.variable, Attr: rightRef.Column}
		} else {
			lit := cmp.Right.(*sqlast.Literal)
			right = &ValueTerm{Kind: lit.Kind, Raw: lit.Raw}
		}
		return &AttrComparison{Var: rv.variable, Attr: leftRef.Column, Op: cmp.Op, Right: right}
	case rightIsRef:
		// literal OP column: anchor on the column with the operator flipped.
		rv := tr.resolve(rightRef)
		if rv == nil {
			return nil
		}
		lit := cmp.Left.(*sqlast.Literal)
		return &AttrComparison{
			Var:   rv.variable,
			Attr:  rightRef.Column,
			Op:    flipOp(cmp.Op),
			Right: &ValueTerm{Kind: lit.Kind, Raw: lit.Raw},
		}
	default:
		tr.flag(IssueUnsupportedConstruct, cmp.Pos, "comparison without a column reference is not supported")
		return nil
	}
}

func flipOp(op sqlast.CompareOp) sqlast.CompareOp {
	switch op {
	case sqlast.OpLt:
		return sqlast.OpGt
	case sqlast.OpGt:
		return sqlast.OpLt
	case sqlast.OpLe:
		return sqlast.OpGe
	case sqlast.OpGe:
		return sqlast.OpLe
	}
	return op // = and <> are symmetric
}

// conjoin folds formulas into a left-associated conjunction, dropping
// nil operands.
func conjoin(left, right Formula) Formula {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	return &And{Left: left, Right: right}
}
