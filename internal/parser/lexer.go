package parser

import (
	"strings"
	"unicode"

	"github.com/safequery/safequery/internal/sqlast"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokKeyword
	tokNumber
	tokString
	tokSymbol // ( ) , . * ;
	tokOp     // = <> < > <= >=
)

type token struct {
	kind tokenKind
	text string // keywords upper-cased, strings unquoted
	pos  sqlast.Pos
}

// keywords are recognized case-insensitively and lexed as tokKeyword.
var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true,
	"AND": true, "OR": true, "NOT": true,
	"JOIN": true, "INNER": true, "LEFT": true, "RIGHT": true,
	"FULL": true, "OUTER": true, "ON": true, "AS": true,
	"GROUP": true, "ORDER": true, "BY": true, "HAVING": true, "LIMIT": true,
	"TRUE": true, "FALSE": true,
	"INSERT": true, "INTO": true, "VALUES": true,
	"UPDATE": true, "SET": true,
	"DELETE": true, "DROP": true, "ALTER": true, "TRUNCATE": true, "TABLE": true,
}

// maxTokens bounds lexer output so adversarially long input fails fast
// with a "too complex" error instead of unbounded work downstream.
const maxTokens = 4096

type lexer struct {
	input  string
	offset int
	line   int
	col    int
}

func newLexer(input string) *lexer {
	return &lexer{input: input, line: 1, col: 1}
}

func (l *lexer) pos() sqlast.Pos {
	return sqlast.Pos{Offset: l.offset, Line: l.line, Col: l.col}
}

func (l *lexer) advance() byte {
	ch := l.input[l.offset]
	l.offset++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *lexer) peek() byte {
	if l.offset >= len(l.input) {
		return 0
	}
	return l.input[l.offset]
}

func (l *lexer) skipSpace() {
	for l.offset < len(l.input) && unicode.IsSpace(rune(l.input[l.offset])) {
		l.advance()
	}
}

// lexAll tokenizes the entire input. A single pass keeps position
// bookkeeping in one place; the parser then works on the token slice.
func lexAll(input string) ([]token, *SyntaxError) {
	l := newLexer(input)
	var toks []token
	for {
		l.skipSpace()
		if len(toks) > maxTokens {
			return nil, &SyntaxError{Pos: l.pos(), Reason: "too complex: statement exceeds token limit"}
		}
		if l.offset >= len(l.input) {
			toks = append(toks, token{kind: tokEOF, text: "end of input", pos: l.pos()})
			return toks, nil
		}

		start := l.pos()
		ch := l.peek()
		switch {
		case isIdentStart(ch):
			word := l.lexWord()
			upper := strings.ToUpper(word)
			if keywords[upper] {
				toks = append(toks, token{kind: tokKeyword, text: upper, pos: start})
			} else {
				toks = append(toks, token{kind: tokIdent, text: word, pos: start})
			}
		case ch >= '0' && ch <= '9':
			toks = append(toks, token{kind: tokNumber, text: l.lexNumber(), pos: start})
		case ch == '\'':
			text, err := l.lexString()
			if err != nil {
				return nil, err
			}
			toks = append(toks, token{kind: tokString, text: text, pos: start})
		case ch == '=':
			l.advance()
			toks = append(toks, token{kind: tokOp, text: "=", pos: start})
		case ch == '<':
			l.advance()
			switch l.peek() {
			case '=':
				l.advance()
				toks = append(toks, token{kind: tokOp, text: "<=", pos: start})
			case '>':
				l.advance()
				toks = append(toks, token{kind: tokOp, text: "<>", pos: start})
			default:
				toks = append(toks, token{kind: tokOp, text: "<", pos: start})
			}
		case ch == '>':
			l.advance()
			if l.peek() == '=' {
				l.advance()
				toks = append(toks, token{kind: tokOp, text: ">=", pos: start})
			} else {
				toks = append(toks, token{kind: tokOp, text: ">", pos: start})
			}
		case ch == '!':
			l.advance()
			if l.peek() == '=' {
				l.advance()
				toks = append(toks, token{kind: tokOp, text: "<>", pos: start})
			} else {
				return nil, &SyntaxError{Pos: start, Expected: "operator", Found: "!"}
			}
		case ch == '(' || ch == ')' || ch == ',' || ch == '.' || ch == '*' || ch == ';':
			l.advance()
			toks = append(toks, token{kind: tokSymbol, text: string(ch), pos: start})
		default:
			return nil, &SyntaxError{Pos: start, Expected: "token", Found: string(ch)}
		}
	}
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || (ch >= '0' && ch <= '9')
}

func (l *lexer) lexWord() string {
	start := l.offset
	for l.offset < len(l.input) && isIdentPart(l.input[l.offset]) {
		l.advance()
	}
	return l.input[start:l.offset]
}

func (l *lexer) lexNumber() string {
	start := l.offset
	for l.offset < len(l.input) && (l.input[l.offset] >= '0' && l.input[l.offset] <= '9') {
		l.advance()
	}
	if l.peek() == '.' {
		l.advance()
		for l.offset < len(l.input) && (l.input[l.offset] >= '0' && l.input[l.offset] <= '9') {
			l.advance()
		}
	}
	return l.input[start:l.offset]
}

// lexString reads a single-quoted string. Doubled quotes escape a quote.
func (l *lexer) lexString() (string, *SyntaxError) {
	start := l.pos()
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.offset >= len(l.input) {
			return "", &SyntaxError{Pos: start, Expected: "closing quote", Found: "end of input"}
		}
		ch := l.advance()
		if ch == '\'' {
			if l.peek() == '\'' {
				l.advance()
				sb.WriteByte('\'')
				continue
			}
			return sb.String(), nil
		}
		sb.WriteByte(ch)
	}
}
