package trc

import "github.com/safequery/safequery/internal/sqlast"

// Formula is the sealed interface over TRC formula nodes.
//
// Node kinds:
//   - RelationAtom: tuple membership, t∈R
//   - AttrComparison: attribute comparison, t.attr OP term
//   - And, Or, Not: connectives
//   - Exists, ForAll: quantifiers binding one tuple variable
type Formula interface {
	formulaNode()
}

// RelationAtom asserts that Var ranges over the rows of Table.
// Relation atoms are what range-restrict a variable: a variable with no
// conjoined atom in scope has an unbounded domain.
type RelationAtom struct {
	Var   string
	Table string
}

func (*RelationAtom) formulaNode() {}

// AttrComparison compares an attribute of a tuple variable against a
// constant or another attribute.
type AttrComparison struct {
	Var   string
	Attr  string
	Op    sqlast.CompareOp
	Right Term
}

func (*AttrComparison) formulaNode() {}

// And is a conjunction. The translator builds left-associated chains,
// which is also how the symbolic parser reassociates them.
type And struct {
	Left, Right Formula
}

func (*And) formulaNode() {}

// Or is a disjunction.
type Or struct {
	Left, Right Formula
}

func (*Or) formulaNode() {}

// Not negates a formula.
type Not struct {
	Inner Formula
}

func (*Not) formulaNode() {}

// Exists binds Var existentially over Body.
type Exists struct {
	Var  string
	Body Formula
}

func (*Exists) formulaNode() {}

// ForAll binds Var universally over Body.
type ForAll struct {
	Var  string
	Body Formula
}

func (*ForAll) formulaNode() {}

// Term is the sealed interface over the right-hand side of an attribute
// comparison: either another attribute or a constant.
type Term interface {
	termNode()
}

// AttrTerm references an attribute of a tuple variable.
type AttrTerm struct {
	Var  string
	Attr string
}

func (*AttrTerm) termNode() {}

// ValueTerm is a constant, kept as raw text plus its lexical kind so
// rendering is exact.
type ValueTerm struct {
	Kind sqlast.LiteralKind
	Raw  string
}

func (*ValueTerm) termNode() {}

// Projection is one attribute read off a tuple variable in the head.
type Projection struct {
	Var  string
	Attr string
}

// Query is a complete TRC query: a set-builder head over a body formula.
//
// FreeVar names the head tuple variable when the projections are drawn
// from a single range variable (or the whole tuple is selected). When
// projections span multiple variables the head is the synthesized tuple
// of Projections and FreeVar is empty.
type Query struct {
	FreeVar     string
	Projections []Projection // nil means the whole tuple of FreeVar
	Body        Formula
}
