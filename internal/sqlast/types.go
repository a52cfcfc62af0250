package sqlast

import "fmt"

// Pos is a source position within the original SQL text.
// Line and Col are 1-based; Offset is the 0-based byte offset.
type Pos struct {
	Offset int
	Line   int
	Col    int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Statement is the sealed interface over all parsed SQL statements.
//
// Statement kinds:
//   - Select: the only statement the gauntlet can prove safe
//   - Write: INSERT/UPDATE/DELETE/DROP/ALTER/TRUNCATE; grammatical SQL
//     that is always rejected by the safety checker, never by the parser
type Statement interface {
	stmtNode()
}

// TableRef is a table in the FROM clause or a join side, with an
// optional alias.
type TableRef struct {
	Table string
	Alias string
	Pos   Pos
}

// Name returns the alias when present, else the table name. Column
// qualifiers resolve against this name.
func (r TableRef) Name() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Table
}

// JoinKind distinguishes inner from outer joins.
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
	JoinFull  JoinKind = "FULL"
)

// Join is one JOIN clause: the joined table and its ON predicate.
// The left side is the accumulated FROM/JOIN chain before this clause.
type Join struct {
	Kind  JoinKind
	Right TableRef
	On    Predicate
	Pos   Pos
}

// Select is a parsed SELECT statement.
//
// GroupBy, OrderBy, Having, and Limit are recognized by the grammar but
// unsupported by the pipeline; the syntactic validator rejects any
// statement where they are present rather than silently dropping them.
type Select struct {
	Projections []Expr
	From        []TableRef
	Joins       []Join
	Where       Predicate // nil when absent
	GroupBy     []Expr
	OrderBy     []Expr
	Having      Predicate
	Limit       *int64
	Pos         Pos
}

func (*Select) stmtNode() {}

// Tables returns every table reference in FROM-then-JOIN order. This
// order also fixes the deterministic tuple variable numbering in the
// TRC translation.
func (s *Select) Tables() []TableRef {
	refs := make([]TableRef, 0, len(s.From)+len(s.Joins))
	refs = append(refs, s.From...)
	for _, j := range s.Joins {
		refs = append(refs, j.Right)
	}
	return refs
}

// WriteKind is the closed set of mutating statement kinds.
type WriteKind string

const (
	WriteInsert   WriteKind = "INSERT"
	WriteUpdate   WriteKind = "UPDATE"
	WriteDelete   WriteKind = "DELETE"
	WriteDrop     WriteKind = "DROP"
	WriteAlter    WriteKind = "ALTER"
	WriteTruncate WriteKind = "TRUNCATE"
)

// Write is any mutating statement. Only the target table is retained:
// enough for the semantic validator to resolve it and for the safety
// checker to name the forbidden operation. The remainder of the
// statement text is kept verbatim for diagnostics.
type Write struct {
	Kind  WriteKind
	Table string
	Rest  string
	Pos   Pos
}

func (*Write) stmtNode() {}

// Predicate is the sealed interface over boolean expressions in WHERE
// and ON clauses.
type Predicate interface {
	predNode()
	Position() Pos
}

// CompareOp is a comparison operator.
type CompareOp string

const (
	OpEq CompareOp = "="
	OpNe CompareOp = "<>"
	OpLt CompareOp = "<"
	OpGt CompareOp = ">"
	OpLe CompareOp = "<="
	OpGe CompareOp = ">="
)

// Comparison is left OP right.
type Comparison struct {
	Left  Expr
	Op    CompareOp
	Right Expr
	Pos   Pos
}

func (*Comparison) predNode()       {}
func (c *Comparison) Position() Pos { return c.Pos }

// And is the conjunction of two predicates.
type And struct {
	Left, Right Predicate
	Pos         Pos
}

func (*And) predNode()       {}
func (a *And) Position() Pos { return a.Pos }

// Or is the disjunction of two predicates.
type Or struct {
	Left, Right Predicate
	Pos         Pos
}

func (*Or) predNode()       {}
func (o *Or) Position() Pos { return o.Pos }

// Not negates a predicate.
type Not struct {
	Inner Predicate
	Pos   Pos
}

func (*Not) predNode()       {}
func (n *Not) Position() Pos { return n.Pos }

// Expr is the sealed interface over value expressions.
type Expr interface {
	exprNode()
	Position() Pos
}

// ColumnRef names a column, optionally qualified by a table name or alias.
type ColumnRef struct {
	Table  string // "" when unqualified
	Column string
	Pos    Pos
}

func (*ColumnRef) exprNode()       {}
func (c *ColumnRef) Position() Pos { return c.Pos }

func (c *ColumnRef) String() string {
	if c.Table != "" {
		return c.Table + "." + c.Column
	}
	return c.Column
}

// LiteralKind classifies a literal lexically. Numbers keep their raw
// text so INTEGER/DECIMAL parseability is decided by the semantic
// validator against the column type, not by the lexer.
type LiteralKind string

const (
	LitNumber LiteralKind = "NUMBER"
	LitString LiteralKind = "STRING"
	LitBool   LiteralKind = "BOOL"
)

// Literal is a constant value with its raw source text.
type Literal struct {
	Kind LiteralKind
	Raw  string // without surrounding quotes for strings
	Pos  Pos
}

func (*Literal) exprNode()       {}
func (l *Literal) Position() Pos { return l.Pos }

// Aggregate is a call like COUNT(x) or SUM(x). Recognized by the
// grammar, rejected by the pipeline as an unsupported construct.
type Aggregate struct {
	Fn  string
	Arg Expr // nil for COUNT(*)
	Pos Pos
}

func (*Aggregate) exprNode()       {}
func (a *Aggregate) Position() Pos { return a.Pos }

// Star is the * projection: every attribute of the (single) range table.
type Star struct {
	Pos Pos
}

func (*Star) exprNode()       {}
func (s *Star) Position() Pos { return s.Pos }
