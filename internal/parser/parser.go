// Package parser turns SQL text into a sqlast tree.
//
// The grammar is the supported subset only: a single SELECT with
// optional joins and a WHERE clause of comparisons combined with
// AND/OR/NOT. GROUP BY, HAVING, ORDER BY, and LIMIT parse into the tree
// so the syntactic validator can reject them by name. Mutating
// statements parse into sqlast.Write: grammaticality is the parser's
// whole job, rejecting writes belongs to the safety checker.
package parser

import (
	"strconv"
	"strings"

	"github.com/safequery/safequery/internal/sqlast"
)

// maxDepth bounds predicate/expression nesting, guarding against
// adversarially nested input.
const maxDepth = 64

// aggregateFns are recognized so the pipeline can reject them with a
// named diagnostic instead of a generic parse error.
var aggregateFns = map[string]bool{
	"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true,
}

// Parse parses one SQL statement. The error, when non-nil, is always a
// *SyntaxError.
func Parse(input string) (sqlast.Statement, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SyntaxError{Pos: sqlast.Pos{Line: 1, Col: 1}, Expected: "statement", Found: "empty input"}
	}
	toks, lexErr := lexAll(input)
	if lexErr != nil {
		return nil, lexErr
	}
	p := &parser{toks: toks, input: input}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	// Optional trailing semicolon, then end of input.
	if p.cur().kind == tokSymbol && p.cur().text == ";" {
		p.next()
	}
	if p.cur().kind != tokEOF {
		return nil, p.errExpected("end of statement")
	}
	return stmt, nil
}

type parser struct {
	toks  []token
	i     int
	input string
	depth int
}

func (p *parser) cur() token  { return p.toks[p.i] }
func (p *parser) next() token { t := p.toks[p.i]; p.i++; return t }

func (p *parser) errExpected(what string) *SyntaxError {
	return &SyntaxError{Pos: p.cur().pos, Expected: what, Found: p.cur().text}
}

func (p *parser) expectKeyword(kw string) *SyntaxError {
	if p.cur().kind == tokKeyword && p.cur().text == kw {
		p.next()
		return nil
	}
	return p.errExpected(kw)
}

func (p *parser) expectSymbol(sym string) *SyntaxError {
	if p.cur().kind == tokSymbol && p.cur().text == sym {
		p.next()
		return nil
	}
	return p.errExpected("'" + sym + "'")
}

func (p *parser) enter() *SyntaxError {
	p.depth++
	if p.depth > maxDepth {
		return &SyntaxError{Pos: p.cur().pos, Reason: "too complex: nesting exceeds depth limit"}
	}
	return nil
}

func (p *parser) leave() { p.depth-- }

func (p *parser) parseStatement() (sqlast.Statement, error) {
	t := p.cur()
	if t.kind != tokKeyword {
		return nil, p.errExpected("SELECT or a statement keyword")
	}
	switch t.text {
	case "SELECT":
		return p.parseSelect()
	case "INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE":
		return p.parseWrite()
	default:
		return nil, p.errExpected("SELECT or a statement keyword")
	}
}

func (p *parser) parseSelect() (*sqlast.Select, error) {
	sel := &sqlast.Select{Pos: p.cur().pos}
	p.next() // SELECT

	projections, err := p.parseProjections()
	if err != nil {
		return nil, err
	}
	sel.Projections = projections

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	for {
		ref, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		sel.From = append(sel.From, ref)
		if p.cur().kind == tokSymbol && p.cur().text == "," {
			p.next()
			continue
		}
		break
	}

	for p.atJoin() {
		join, err := p.parseJoin()
		if err != nil {
			return nil, err
		}
		sel.Joins = append(sel.Joins, join)
	}

	if p.cur().kind == tokKeyword && p.cur().text == "WHERE" {
		p.next()
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		sel.Where = pred
	}

	if p.cur().kind == tokKeyword && p.cur().text == "GROUP" {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		sel.GroupBy = exprs
	}

	if p.cur().kind == tokKeyword && p.cur().text == "HAVING" {
		p.next()
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		sel.Having = pred
	}

	if p.cur().kind == tokKeyword && p.cur().text == "ORDER" {
		p.next()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		exprs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		sel.OrderBy = exprs
	}

	if p.cur().kind == tokKeyword && p.cur().text == "LIMIT" {
		p.next()
		if p.cur().kind != tokNumber {
			return nil, p.errExpected("limit count")
		}
		n, convErr := strconv.ParseInt(p.next().text, 10, 64)
		if convErr != nil {
			return nil, &SyntaxError{Pos: p.toks[p.i-1].pos, Expected: "integer limit", Found: p.toks[p.i-1].text}
		}
		sel.Limit = &n
	}

	return sel, nil
}

func (p *parser) parseProjections() ([]sqlast.Expr, error) {
	if p.cur().kind == tokSymbol && p.cur().text == "*" {
		star := &sqlast.Star{Pos: p.cur().pos}
		p.next()
		return []sqlast.Expr{star}, nil
	}
	return p.parseExprList()
}

func (p *parser) parseExprList() ([]sqlast.Expr, error) {
	var exprs []sqlast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if p.cur().kind == tokSymbol && p.cur().text == "," {
			p.next()
			continue
		}
		return exprs, nil
	}
}

func (p *parser) parseTableRef() (sqlast.TableRef, error) {
	if p.cur().kind != tokIdent {
		return sqlast.TableRef{}, p.errExpected("table name")
	}
	ref := sqlast.TableRef{Table: p.cur().text, Pos: p.cur().pos}
	p.next()

	if p.cur().kind == tokKeyword && p.cur().text == "AS" {
		p.next()
		if p.cur().kind != tokIdent {
			return sqlast.TableRef{}, p.errExpected("alias")
		}
		ref.Alias = p.next().text
	} else if p.cur().kind == tokIdent {
		ref.Alias = p.next().text
	}
	return ref, nil
}

func (p *parser) atJoin() bool {
	t := p.cur()
	if t.kind != tokKeyword {
		return false
	}
	switch t.text {
	case "JOIN", "INNER", "LEFT", "RIGHT", "FULL":
		return true
	}
	return false
}

func (p *parser) parseJoin() (sqlast.Join, error) {
	join := sqlast.Join{Kind: sqlast.JoinInner, Pos: p.cur().pos}

	switch p.cur().text {
	case "INNER":
		p.next()
	case "LEFT":
		join.Kind = sqlast.JoinLeft
		p.next()
	case "RIGHT":
		join.Kind = sqlast.JoinRight
		p.next()
	case "FULL":
		join.Kind = sqlast.JoinFull
		p.next()
	}
	if p.cur().kind == tokKeyword && p.cur().text == "OUTER" {
		p.next()
	}
	if err := p.expectKeyword("JOIN"); err != nil {
		return sqlast.Join{}, err
	}

	right, err := p.parseTableRef()
	if err != nil {
		return sqlast.Join{}, err
	}
	join.Right = right

	if err := p.expectKeyword("ON"); err != nil {
		return sqlast.Join{}, err
	}
	on, err := p.parsePredicate()
	if err != nil {
		return sqlast.Join{}, err
	}
	join.On = on
	return join, nil
}

// parsePredicate parses the OR level; AND binds tighter than OR and NOT
// tighter than AND, matching SQL precedence.
func (p *parser) parsePredicate() (sqlast.Predicate, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokKeyword && p.cur().text == "OR" {
		pos := p.next().pos
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &sqlast.Or{Left: left, Right: right, Pos: pos}
	}
	return left, nil
}

func (p *parser) parseAnd() (sqlast.Predicate, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().kind == tokKeyword && p.cur().text == "AND" {
		pos := p.next().pos
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &sqlast.And{Left: left, Right: right, Pos: pos}
	}
	return left, nil
}

func (p *parser) parseUnary() (sqlast.Predicate, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if p.cur().kind == tokKeyword && p.cur().text == "NOT" {
		pos := p.next().pos
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &sqlast.Not{Inner: inner, Pos: pos}, nil
	}

	if p.cur().kind == tokSymbol && p.cur().text == "(" {
		p.next()
		inner, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return inner, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (sqlast.Predicate, error) {
	left, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokOp {
		return nil, p.errExpected("comparison operator")
	}
	opTok := p.next()
	right, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &sqlast.Comparison{
		Left:  left,
		Op:    sqlast.CompareOp(opTok.text),
		Right: right,
		Pos:   opTok.pos,
	}, nil
}

func (p *parser) parseExpr() (sqlast.Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.next()
		return &sqlast.Literal{Kind: sqlast.LitNumber, Raw: t.text, Pos: t.pos}, nil
	case tokString:
		p.next()
		return &sqlast.Literal{Kind: sqlast.LitString, Raw: t.text, Pos: t.pos}, nil
	case tokKeyword:
		if t.text == "TRUE" || t.text == "FALSE" {
			p.next()
			return &sqlast.Literal{Kind: sqlast.LitBool, Raw: strings.ToLower(t.text), Pos: t.pos}, nil
		}
		return nil, p.errExpected("expression")
	case tokIdent:
		if aggregateFns[strings.ToUpper(t.text)] && p.peekSymbol(1, "(") {
			return p.parseAggregate()
		}
		p.next()
		ref := &sqlast.ColumnRef{Column: t.text, Pos: t.pos}
		if p.cur().kind == tokSymbol && p.cur().text == "." {
			p.next()
			if p.cur().kind != tokIdent {
				return nil, p.errExpected("column name")
			}
			ref.Table = ref.Column
			ref.Column = p.next().text
		}
		return ref, nil
	default:
		return nil, p.errExpected("expression")
	}
}

func (p *parser) peekSymbol(ahead int, sym string) bool {
	if p.i+ahead >= len(p.toks) {
		return false
	}
	t := p.toks[p.i+ahead]
	return t.kind == tokSymbol && t.text == sym
}

func (p *parser) parseAggregate() (sqlast.Expr, error) {
	fnTok := p.next()
	agg := &sqlast.Aggregate{Fn: strings.ToUpper(fnTok.text), Pos: fnTok.pos}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	if p.cur().kind == tokSymbol && p.cur().text == "*" {
		p.next() // COUNT(*)
	} else {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		agg.Arg = arg
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	return agg, nil
}

// parseWrite parses mutating statements just far enough to retain the
// statement kind and target table. The tail is kept verbatim.
func (p *parser) parseWrite() (*sqlast.Write, error) {
	kwTok := p.next()
	w := &sqlast.Write{Kind: sqlast.WriteKind(kwTok.text), Pos: kwTok.pos}

	switch w.Kind {
	case sqlast.WriteInsert:
		if err := p.expectKeyword("INTO"); err != nil {
			return nil, err
		}
	case sqlast.WriteDelete:
		if err := p.expectKeyword("FROM"); err != nil {
			return nil, err
		}
	case sqlast.WriteDrop, sqlast.WriteAlter:
		if err := p.expectKeyword("TABLE"); err != nil {
			return nil, err
		}
	case sqlast.WriteTruncate:
		if p.cur().kind == tokKeyword && p.cur().text == "TABLE" {
			p.next()
		}
	}

	if p.cur().kind != tokIdent {
		return nil, p.errExpected("table name")
	}
	nameTok := p.next()
	w.Table = nameTok.text

	// Everything after the table name is retained for diagnostics but
	// not parsed: the statement is rejected downstream regardless.
	rest := p.input[nameTok.pos.Offset+len(nameTok.text):]
	w.Rest = strings.TrimSuffix(strings.TrimSpace(rest), ";")
	p.i = len(p.toks) - 1 // jump to EOF
	return w, nil
}
