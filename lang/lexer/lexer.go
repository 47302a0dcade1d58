// Package lexer turns source text into a stream of tokens for the parser.
//
// It is a one-character-lookahead scanner (two characters when disambiguating
// a numeric literal's fractional part), grounded on the teacher's
// lang/scanner package but trimmed to the token set spec.md requires:
// comments, string literals without escapes, numeric literals, identifiers
// and keywords, and the one/two-character operators and punctuation used by
// this language's grammar.
package lexer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/wisp/lang/token"
)

// Error reports a lexical error at a source position.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Pos.Line, e.Msg)
}

// Lexer scans a single source chunk into tokens.
type Lexer struct {
	src  string
	line int

	start   int // start offset of the token currently being scanned
	current int // offset of the next unread byte
}

// New returns a Lexer ready to scan src.
func New(src string) *Lexer {
	return &Lexer{src: src, line: 1}
}

// Next scans and returns the next token. Once it returns a token.EOF token,
// every subsequent call also returns EOF.
func (l *Lexer) Next() (token.Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return token.Token{}, err
	}

	l.start = l.current
	if l.atEnd() {
		return l.make(token.EOF), nil
	}

	c := l.advance()
	switch {
	case isAlpha(c):
		return l.identifier(), nil
	case isDigit(c):
		return l.number(), nil
	}

	switch c {
	case '(':
		return l.make(token.LPAREN), nil
	case ')':
		return l.make(token.RPAREN), nil
	case '{':
		return l.make(token.LBRACE), nil
	case '}':
		return l.make(token.RBRACE), nil
	case ',':
		return l.make(token.COMMA), nil
	case ';':
		return l.make(token.SEMI), nil
	case '+':
		return l.make(token.PLUS), nil
	case '-':
		return l.make(token.MINUS), nil
	case '*':
		return l.make(token.STAR), nil
	case '/':
		return l.make(token.SLASH), nil
	case '!':
		return l.make(l.twoChar('=', token.BANG_EQUAL, token.BANG)), nil
	case '=':
		return l.make(l.twoChar('=', token.EQUAL_EQUAL, token.EQUAL)), nil
	case '<':
		return l.make(l.twoChar('=', token.LESS_EQUAL, token.LESS)), nil
	case '>':
		return l.make(l.twoChar('=', token.GREATER_EQUAL, token.GREATER)), nil
	case '"':
		return l.string()
	}

	return token.Token{}, &Error{Pos: l.pos(), Msg: fmt.Sprintf("unexpected character %q", c)}
}

// twoChar consumes `expected` if it is next, returning twoKind; otherwise it
// leaves the cursor untouched and returns oneKind.
func (l *Lexer) twoChar(expected byte, twoKind, oneKind token.Kind) token.Kind {
	if l.match(expected) {
		return twoKind
	}
	return oneKind
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		if l.atEnd() {
			return nil
		}
		switch c := l.peek(); c {
		case ' ', '\r', '\t':
			l.current++
		case '\n':
			l.line++
			l.current++
		case '/':
			if l.peekAt(1) == '/' {
				for !l.atEnd() && l.peek() != '\n' {
					l.current++
				}
			} else {
				return nil
			}
		default:
			return nil
		}
	}
}

func (l *Lexer) identifier() token.Token {
	for !l.atEnd() && isAlphaNumeric(l.peek()) {
		l.current++
	}
	lexeme := l.src[l.start:l.current]
	return l.make(token.Lookup(lexeme))
}

func (l *Lexer) number() token.Token {
	for !l.atEnd() && isDigit(l.peek()) {
		l.current++
	}
	if !l.atEnd() && l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.current++ // consume '.'
		for !l.atEnd() && isDigit(l.peek()) {
			l.current++
		}
	}
	lexeme := l.src[l.start:l.current]
	n, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		// unreachable: the scan loop above only admits valid float syntax.
		n = 0
	}
	tok := l.make(token.NUMBER)
	tok.Number = n
	return tok
}

func (l *Lexer) string() (token.Token, error) {
	for !l.atEnd() && l.peek() != '"' {
		if l.peek() == '\n' {
			l.line++
		}
		l.current++
	}
	if l.atEnd() {
		return token.Token{}, &Error{Pos: l.pos(), Msg: "unterminated string"}
	}
	lit := l.src[l.start+1 : l.current]
	l.current++ // closing quote
	tok := l.make(token.STRING)
	tok.Literal = lit
	return tok, nil
}

func (l *Lexer) make(k token.Kind) token.Token {
	return token.Token{
		Kind:   k,
		Lexeme: l.src[l.start:l.current],
		Pos:    l.pos(),
	}
}

func (l *Lexer) pos() token.Position {
	return token.Position{Start: l.start, End: l.current, Line: l.line}
}

func (l *Lexer) atEnd() bool { return l.current >= len(l.src) }

func (l *Lexer) advance() byte {
	c := l.src[l.current]
	l.current++
	return c
}

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.current]
}

func (l *Lexer) peekAt(n int) byte {
	if l.current+n >= len(l.src) {
		return 0
	}
	return l.src[l.current+n]
}

func (l *Lexer) match(expected byte) bool {
	if l.atEnd() || l.src[l.current] != expected {
		return false
	}
	l.current++
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlphaNumeric(c byte) bool { return isAlpha(c) || isDigit(c) }

// Tokenize scans src to completion and returns every token including the
// trailing EOF sentinel, or the first lexical error encountered.
func Tokenize(src string) ([]token.Token, error) {
	l := New(src)
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

// String renders a token for debugging, e.g. in the `tokenize` CLI command.
func String(tok token.Token) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d: %s", tok.Pos.Line, tok.Kind)
	if tok.Kind == token.IDENT || tok.Kind == token.NUMBER || tok.Kind == token.STRING {
		fmt.Fprintf(&b, " %q", tok.Lexeme)
	}
	return b.String()
}
