package trc

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/safequery/safequery/internal/sqlast"
)

// ParseQuery parses the canonical symbolic notation produced by Render
// back into a Query. Only the symbolic form round-trips; the English
// gloss has no parser.
//
// Head projections are recovered from a synthesized-tuple head; a plain
// head variable carries no projection list in the notation, so FreeVar
// is set and Projections left nil.
func ParseQuery(input string) (*Query, error) {
	s := newScanner(input)
	s.skipSpace()
	if !s.eat('{') {
		return nil, s.errf("expected '{'")
	}

	q := &Query{}
	s.skipSpace()
	if s.peek() == '⟨' {
		s.next()
		for {
			v, attr, err := s.scanQualified()
			if err != nil {
				return nil, err
			}
			q.Projections = append(q.Projections, Projection{Var: v, Attr: attr})
			s.skipSpace()
			if s.eat(',') {
				s.skipSpace()
				continue
			}
			break
		}
		if !s.eat('⟩') {
			return nil, s.errf("expected '⟩'")
		}
	} else {
		v := s.scanIdent()
		if v == "" {
			return nil, s.errf("expected head variable")
		}
		q.FreeVar = v
	}

	s.skipSpace()
	if !s.eat('|') {
		return nil, s.errf("expected '|'")
	}
	body, err := s.parseOr()
	if err != nil {
		return nil, err
	}
	q.Body = body
	s.skipSpace()
	if !s.eat('}') {
		return nil, s.errf("expected '}'")
	}
	s.skipSpace()
	if !s.done() {
		return nil, s.errf("trailing input")
	}
	return q, nil
}

// ParseFormula parses a bare formula in symbolic notation.
func ParseFormula(input string) (Formula, error) {
	s := newScanner(input)
	f, err := s.parseOr()
	if err != nil {
		return nil, err
	}
	s.skipSpace()
	if !s.done() {
		return nil, s.errf("trailing input")
	}
	return f, nil
}

type scanner struct {
	runes []rune
	i     int
}

func newScanner(input string) *scanner {
	return &scanner{runes: []rune(input)}
}

func (s *scanner) done() bool { return s.i >= len(s.runes) }

func (s *scanner) peek() rune {
	if s.done() {
		return 0
	}
	return s.runes[s.i]
}

func (s *scanner) next() rune {
	r := s.runes[s.i]
	s.i++
	return r
}

func (s *scanner) eat(r rune) bool {
	if s.peek() == r {
		s.i++
		return true
	}
	return false
}

func (s *scanner) skipSpace() {
	for !s.done() && unicode.IsSpace(s.runes[s.i]) {
		s.i++
	}
}

func (s *scanner) errf(format string, args ...any) error {
	return fmt.Errorf("trc notation at rune %d: %s", s.i, fmt.Sprintf(format, args...))
}

func (s *scanner) scanIdent() string {
	start := s.i
	for !s.done() {
		r := s.peek()
		if r == '_' || unicode.IsLetter(r) || (s.i > start && unicode.IsDigit(r)) {
			s.i++
			continue
		}
		break
	}
	return string(s.runes[start:s.i])
}

func (s *scanner) scanQualified() (string, string, error) {
	s.skipSpace()
	v := s.scanIdent()
	if v == "" {
		return "", "", s.errf("expected variable")
	}
	if !s.eat('.') {
		return "", "", s.errf("expected '.' after %q", v)
	}
	attr := s.scanIdent()
	if attr == "" {
		return "", "", s.errf("expected attribute after %q.", v)
	}
	return v, attr, nil
}

func (s *scanner) parseOr() (Formula, error) {
	left, err := s.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		s.skipSpace()
		if !s.eat('∨') {
			return left, nil
		}
		right, err := s.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Or{Left: left, Right: right}
	}
}

func (s *scanner) parseAnd() (Formula, error) {
	left, err := s.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		s.skipSpace()
		if !s.eat('∧') {
			return left, nil
		}
		right, err := s.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &And{Left: left, Right: right}
	}
}

func (s *scanner) parseUnary() (Formula, error) {
	s.skipSpace()
	switch s.peek() {
	case '¬':
		s.next()
		inner, err := s.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Not{Inner: inner}, nil
	case '∃', '∀':
		quant := s.next()
		s.skipSpace()
		v := s.scanIdent()
		if v == "" {
			return nil, s.errf("expected quantified variable")
		}
		s.skipSpace()
		if !s.eat('(') {
			return nil, s.errf("expected '(' after quantifier")
		}
		body, err := s.parseOr()
		if err != nil {
			return nil, err
		}
		s.skipSpace()
		if !s.eat(')') {
			return nil, s.errf("expected ')' closing quantifier body")
		}
		if quant == '∃' {
			return &Exists{Var: v, Body: body}, nil
		}
		return &ForAll{Var: v, Body: body}, nil
	case '(':
		s.next()
		inner, err := s.parseOr()
		if err != nil {
			return nil, err
		}
		s.skipSpace()
		if !s.eat(')') {
			return nil, s.errf("expected ')'")
		}
		return inner, nil
	default:
		return s.parseAtom()
	}
}

// parseAtom parses `v∈Table` or `v.attr OP term`.
func (s *scanner) parseAtom() (Formula, error) {
	v := s.scanIdent()
	if v == "" {
		return nil, s.errf("expected atom")
	}
	s.skipSpace()
	if s.eat('∈') {
		s.skipSpace()
		table := s.scanIdent()
		if table == "" {
			return nil, s.errf("expected table name after ∈")
		}
		return &RelationAtom{Var: v, Table: table}, nil
	}
	if !s.eat('.') {
		return nil, s.errf("expected '∈' or '.' after %q", v)
	}
	attr := s.scanIdent()
	if attr == "" {
		return nil, s.errf("expected attribute")
	}
	op, err := s.scanOp()
	if err != nil {
		return nil, err
	}
	term, err := s.scanTerm()
	if err != nil {
		return nil, err
	}
	return &AttrComparison{Var: v, Attr: attr, Op: op, Right: term}, nil
}

func (s *scanner) scanOp() (sqlast.CompareOp, error) {
	s.skipSpace()
	switch s.peek() {
	case '=':
		s.next()
		return sqlast.OpEq, nil
	case '<':
		s.next()
		switch s.peek() {
		case '>':
			s.next()
			return sqlast.OpNe, nil
		case '=':
			s.next()
			return sqlast.OpLe, nil
		}
		return sqlast.OpLt, nil
	case '>':
		s.next()
		if s.peek() == '=' {
			s.next()
			return sqlast.OpGe, nil
		}
		return sqlast.OpGt, nil
	}
	return "", s.errf("expected comparison operator")
}

func (s *scanner) scanTerm() (Term, error) {
	s.skipSpace()
	r := s.peek()
	switch {
	case r == '\'':
		s.next()
		var sb strings.Builder
		for {
			if s.done() {
				return nil, s.errf("unterminated string")
			}
			c := s.next()
			if c == '\'' {
				if s.peek() == '\'' {
					s.next()
					sb.WriteRune('\'')
					continue
				}
				return &ValueTerm{Kind: sqlast.LitString, Raw: sb.String()}, nil
			}
			sb.WriteRune(c)
		}
	case unicode.IsDigit(r):
		start := s.i
		for !s.done() && (unicode.IsDigit(s.peek()) || s.peek() == '.') {
			s.next()
		}
		return &ValueTerm{Kind: sqlast.LitNumber, Raw: string(s.runes[start:s.i])}, nil
	default:
		ident := s.scanIdent()
		if ident == "" {
			return nil, s.errf("expected term")
		}
		if ident == "true" || ident == "false" {
			return &ValueTerm{Kind: sqlast.LitBool, Raw: ident}, nil
		}
		if !s.eat('.') {
			return nil, s.errf("expected '.' in attribute term")
		}
		attr := s.scanIdent()
		if attr == "" {
			return nil, s.errf("expected attribute in term")
		}
		return &AttrTerm{Var: ident, Attr: attr}, nil
	}
}
