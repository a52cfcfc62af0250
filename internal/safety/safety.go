// Package safety implements stage 3 of the gauntlet: the logical and
// security verdict over the translated TRC formula.
//
// The central check is domain independence. A formula is safe only when
// every tuple variable, bound or free, is range-restricted: bounded by
// a relation atom conjoined within the variable's scope. A negation may
// never be the sole restrictor of a variable, which is the classical
// rule that rejects "all rows NOT matching X" over an unbounded
// universe.
//
// Checks run in a fixed order and do not short-circuit (except that a
// write statement has no formula to analyze), so one report lists every
// applicable violation.
package safety

import (
	"fmt"
	"sort"

	"github.com/safequery/safequery/internal/sqlast"
	"github.com/safequery/safequery/internal/trc"
)

// ErrorCode categorizes logical/security errors.
type ErrorCode string

const (
	CodeWriteOperationForbidden ErrorCode = "WRITE_OPERATION_FORBIDDEN"
	CodeUnsupportedConstruct    ErrorCode = "UNSUPPORTED_CONSTRUCT"
	CodeUnsafeFormula           ErrorCode = "UNSAFE_FORMULA"
	CodeAmbiguousQuantifier     ErrorCode = "AMBIGUOUS_QUANTIFIER"
)

// Error is one stage-3 violation.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Check runs the stage-3 checks against the original statement, the
// translated query, and the issues the translator flagged. For a write
// statement the query is nil and the write rejection is the only check.
func Check(stmt sqlast.Statement, q *trc.Query, issues []trc.Issue) []*Error {
	c := &checker{}

	if w, ok := stmt.(*sqlast.Write); ok {
		c.addError(CodeWriteOperationForbidden,
			"%s against table %q is forbidden: only SELECT statements may be validated", w.Kind, w.Table)
		return c.errs
	}

	// Constructs the pipeline cannot prove safe, flagged upstream.
	if sel, ok := stmt.(*sqlast.Select); ok {
		if len(sel.GroupBy) > 0 {
			c.addError(CodeUnsupportedConstruct, "GROUP BY is not supported")
		}
	}
	for _, issue := range issues {
		c.addError(CodeUnsupportedConstruct, "%s", issue.Message)
	}

	if q != nil {
		c.checkRangeRestriction(q)
		c.checkQuantifierAmbiguity(q.Body)
	}
	return c.errs
}

type checker struct {
	errs   []*Error
	unsafe map[string]bool // variables already reported unsafe
}

func (c *checker) addError(code ErrorCode, format string, args ...any) {
	c.errs = append(c.errs, &Error{Code: code, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) reportUnsafe(variable, reason string) {
	if c.unsafe == nil {
		c.unsafe = make(map[string]bool)
	}
	if c.unsafe[variable] {
		return
	}
	c.unsafe[variable] = true
	c.addError(CodeUnsafeFormula, "variable %s is not range-restricted: %s", variable, reason)
}

// checkRangeRestriction verifies the head variable and every quantified
// variable are bounded by a conjoined relation atom in scope.
func (c *checker) checkRangeRestriction(q *trc.Query) {
	bodyRestricted := restricted(q.Body)

	head := make(map[string]bool)
	if q.FreeVar != "" {
		head[q.FreeVar] = true
	}
	for _, p := range q.Projections {
		head[p.Var] = true
	}
	for _, v := range sortedKeys(head) {
		if !bodyRestricted[v] {
			c.reportUnsafe(v, "the output variable must appear in a conjoined relation atom")
		}
	}

	c.walkScopes(q.Body, bodyRestricted)
}

// restricted computes the set of variables positively range-restricted
// by a formula when it appears as a conjunct:
//   - a relation atom restricts its variable
//   - a conjunction restricts the union of its sides
//   - a disjunction restricts only what both sides restrict
//   - a negation or universal quantifier restricts nothing
//   - an existential restricts what its body restricts, minus the bound
//     variable
func restricted(f trc.Formula) map[string]bool {
	out := make(map[string]bool)
	switch node := f.(type) {
	case *trc.RelationAtom:
		out[node.Var] = true
	case *trc.And:
		for v := range restricted(node.Left) {
			out[v] = true
		}
		for v := range restricted(node.Right) {
			out[v] = true
		}
	case *trc.Or:
		right := restricted(node.Right)
		for v := range restricted(node.Left) {
			if right[v] {
				out[v] = true
			}
		}
	case *trc.Exists:
		for v := range restricted(node.Body) {
			if v != node.Var {
				out[v] = true
			}
		}
	case *trc.Not, *trc.ForAll, *trc.AttrComparison, nil:
		// No positive restriction.
	}
	return out
}

// freeVars computes the free variables of a formula.
func freeVars(f trc.Formula) map[string]bool {
	out := make(map[string]bool)
	switch node := f.(type) {
	case *trc.RelationAtom:
		out[node.Var] = true
	case *trc.AttrComparison:
		out[node.Var] = true
		if attr, ok := node.Right.(*trc.AttrTerm); ok {
			out[attr.Var] = true
		}
	case *trc.And:
		mergeInto(out, freeVars(node.Left), freeVars(node.Right))
	case *trc.Or:
		mergeInto(out, freeVars(node.Left), freeVars(node.Right))
	case *trc.Not:
		mergeInto(out, freeVars(node.Inner))
	case *trc.Exists:
		mergeInto(out, freeVars(node.Body))
		delete(out, node.Var)
	case *trc.ForAll:
		mergeInto(out, freeVars(node.Body))
		delete(out, node.Var)
	}
	return out
}

// walkScopes recursively verifies quantifier bodies and negations.
// env is the set of variables restricted by atoms conjoined around the
// current position; a conjunction extends each side's environment with
// what the other side restricts.
func (c *checker) walkScopes(f trc.Formula, env map[string]bool) {
	switch node := f.(type) {
	case *trc.And:
		c.walkScopes(node.Left, union(env, restricted(node.Right)))
		c.walkScopes(node.Right, union(env, restricted(node.Left)))
	case *trc.Or:
		c.walkScopes(node.Left, env)
		c.walkScopes(node.Right, env)
	case *trc.Not:
		// Negation must not be the sole restrictor: every free variable
		// of the negated formula needs an atom outside the negation.
		for _, v := range sortedKeys(freeVars(node.Inner)) {
			if !env[v] {
				c.reportUnsafe(v, "negation is its only restrictor; a relation atom must bound it outside the ¬")
			}
		}
		c.walkScopes(node.Inner, env)
	case *trc.Exists:
		bodyRestricted := restricted(node.Body)
		if !bodyRestricted[node.Var] {
			c.reportUnsafe(node.Var, "existentially bound variable has no conjoined relation atom in its scope")
		}
		c.walkScopes(node.Body, union(env, bodyRestricted))
	case *trc.ForAll:
		if !restricted(node.Body)[node.Var] {
			c.reportUnsafe(node.Var, "universally bound variable has no conjoined relation atom in its scope")
		}
		c.walkScopes(node.Body, env)
	case *trc.RelationAtom, *trc.AttrComparison, nil:
	}
}

// checkQuantifierAmbiguity rejects a variable that ranges over two
// different tables in overlapping scope. A nested quantifier rebinding
// the name opens a fresh scope.
func (c *checker) checkQuantifierAmbiguity(f trc.Formula) {
	c.walkBindings(f, make(map[string]string))
}

func (c *checker) walkBindings(f trc.Formula, bindings map[string]string) {
	switch node := f.(type) {
	case *trc.RelationAtom:
		if prev, ok := bindings[node.Var]; ok && prev != node.Table {
			c.addError(CodeAmbiguousQuantifier,
				"variable %s ranges over both %s and %s in the same scope", node.Var, prev, node.Table)
			return
		}
		bindings[node.Var] = node.Table
	case *trc.And:
		c.walkBindings(node.Left, bindings)
		c.walkBindings(node.Right, bindings)
	case *trc.Or:
		c.walkBindings(node.Left, bindings)
		c.walkBindings(node.Right, bindings)
	case *trc.Not:
		c.walkBindings(node.Inner, bindings)
	case *trc.Exists:
		c.walkBindings(node.Body, rebind(bindings, node.Var))
	case *trc.ForAll:
		c.walkBindings(node.Body, rebind(bindings, node.Var))
	}
}

func rebind(bindings map[string]string, v string) map[string]string {
	out := make(map[string]string, len(bindings))
	for k, t := range bindings {
		if k != v {
			out[k] = t
		}
	}
	return out
}

func union(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool, len(a)+len(b))
	for v := range a {
		out[v] = true
	}
	for v := range b {
		out[v] = true
	}
	return out
}

// sortedKeys keeps error ordering deterministic when iterating variable
// sets.
func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mergeInto(dst map[string]bool, srcs ...map[string]bool) {
	for _, src := range srcs {
		for v := range src {
			dst[v] = true
		}
	}
}
