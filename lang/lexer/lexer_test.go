package lexer_test

import (
	"testing"

	"github.com/mna/wisp/lang/lexer"
	"github.com/mna/wisp/lang/token"
	"github.com/stretchr/testify/require"
)

func kinds(t *testing.T, src string) []token.Kind {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	require.NoError(t, err)
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizePunctuationAndOperators(t *testing.T) {
	got := kinds(t, `( ) { } , ; + - * / ! = < > != == <= >=`)
	want := []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.COMMA, token.SEMI,
		token.PLUS, token.MINUS, token.STAR, token.SLASH, token.BANG, token.EQUAL,
		token.LESS, token.GREATER, token.BANG_EQUAL, token.EQUAL_EQUAL,
		token.LESS_EQUAL, token.GREATER_EQUAL, token.EOF,
	}
	require.Equal(t, want, got)
}

func TestTokenizeKeywordsAndIdents(t *testing.T) {
	got := kinds(t, `let fun while for if else return print true false nil foo_bar`)
	want := []token.Kind{
		token.LET, token.FUN, token.WHILE, token.FOR, token.IF, token.ELSE,
		token.RETURN, token.PRINT, token.TRUE, token.FALSE, token.NIL,
		token.IDENT, token.EOF,
	}
	require.Equal(t, want, got)
}

func TestTokenizeNumbers(t *testing.T) {
	toks, err := lexer.Tokenize(`1 2.5 100`)
	require.NoError(t, err)
	require.Len(t, toks, 4)
	require.Equal(t, 1.0, toks[0].Number)
	require.Equal(t, 2.5, toks[1].Number)
	require.Equal(t, 100.0, toks[2].Number)
}

func TestTokenizeNumberWithoutFractionalDigitStopsAtDot(t *testing.T) {
	// "1." is not a valid fractional literal: the dot is not consumed unless a
	// digit follows it (spec.md §4.1). The lone '.' is not a token of this
	// language, so only the first token is scanned here.
	tok, err := lexer.New(`1.`).Next()
	require.NoError(t, err)
	require.Equal(t, token.NUMBER, tok.Kind)
	require.Equal(t, 1.0, tok.Number)
	require.Equal(t, "1", tok.Lexeme)
}

func TestTokenizeString(t *testing.T) {
	toks, err := lexer.Tokenize(`"hello world"`)
	require.NoError(t, err)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, "hello world", toks[0].Literal)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := lexer.Tokenize(`"hello`)
	require.Error(t, err)
	var lexErr *lexer.Error
	require.ErrorAs(t, err, &lexErr)
}

func TestTokenizeSkipsLineComments(t *testing.T) {
	got := kinds(t, "let x = 1; // a comment\nprint x;")
	want := []token.Kind{
		token.LET, token.IDENT, token.EQUAL, token.NUMBER, token.SEMI,
		token.PRINT, token.IDENT, token.SEMI, token.EOF,
	}
	require.Equal(t, want, got)
}

func TestTokenizeTracksLines(t *testing.T) {
	toks, err := lexer.Tokenize("let x = 1;\nprint x;")
	require.NoError(t, err)
	require.Equal(t, 1, toks[0].Pos.Line)
	// the "print" token is on the second line
	printIdx := 5
	require.Equal(t, token.PRINT, toks[printIdx].Kind)
	require.Equal(t, 2, toks[printIdx].Pos.Line)
}

func TestTokenizeAlwaysEndsWithEOF(t *testing.T) {
	got := kinds(t, "")
	require.Equal(t, []token.Kind{token.EOF}, got)
}
