// Package parser implements the recursive-descent / Pratt parser that turns a
// token stream into an ast.Expr tree (spec.md §4.2).
package parser

import (
	"fmt"

	"github.com/mna/wisp/lang/ast"
	"github.com/mna/wisp/lang/lexer"
	"github.com/mna/wisp/lang/token"
)

// ErrorKind tags the shape of a parse error (spec.md §7).
type ErrorKind int

const (
	ErrExpected ErrorKind = iota
	ErrUnexpected
	ErrExpectedPrimary
	ErrExpectedBinaryOperator
	ErrExpectedUnaryOperator
	ErrUnexpectedEOF
)

// Error is a single parse-time diagnostic.
type Error struct {
	Kind     ErrorKind
	Expected token.Kind
	Found    token.Kind
	Line     int
	Msg      string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%d: %s", e.Line, e.Msg)
	}
	return fmt.Sprintf("%d: expected %s, found %s", e.Line, e.Expected, e.Found)
}

// ErrorList aggregates every error recorded while parsing one chunk, modeled
// on go/scanner.ErrorList and the teacher's scanner.ErrorList alias of it.
type ErrorList []*Error

func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more errors)", el[0], len(el)-1)
	}
}

// Precedence levels, low to high (spec.md §4.2).
const (
	precNone       = iota
	precAssignment // =
	precOr         // (reserved, no 'or' keyword in this language yet)
	precAnd        // (reserved, no 'and' keyword in this language yet)
	precEquality   // == !=
	precComparison // < <= > >=
	precTerm       // + -
	precFactor     // * /
	precUnary      // ! -
	precCall       // ( .
	precPrimary
)

var binPrec = map[token.Kind]int{
	token.EQUAL_EQUAL:   precEquality,
	token.BANG_EQUAL:    precEquality,
	token.LESS:          precComparison,
	token.LESS_EQUAL:    precComparison,
	token.GREATER:       precComparison,
	token.GREATER_EQUAL: precComparison,
	token.PLUS:          precTerm,
	token.MINUS:         precTerm,
	token.STAR:          precFactor,
	token.SLASH:         precFactor,
}

var binOps = map[token.Kind]ast.BinaryOperator{
	token.PLUS:          ast.Add,
	token.MINUS:         ast.Sub,
	token.STAR:          ast.Mul,
	token.SLASH:         ast.Div,
	token.EQUAL_EQUAL:   ast.Eq,
	token.BANG_EQUAL:    ast.NotEq,
	token.LESS:          ast.Lt,
	token.LESS_EQUAL:    ast.LtEq,
	token.GREATER:       ast.Gt,
	token.GREATER_EQUAL: ast.GtEq,
}

// parser holds the mutable state of a single parse.
type parser struct {
	toks []token.Token
	pos  int
	errs ErrorList
}

// errPanic is recovered at the statement level, matching the teacher's
// panic-mode error recovery (lang/parser/parser.go's errPanicMode).
var errPanic = fmt.Errorf("parser: panic mode")

// Parse lexes and parses src into a top-level block. The returned error, if
// non-nil, is the *lexer.Error when tokenizing fails, and an ErrorList
// otherwise.
func Parse(src string) (*ast.Block, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	block := p.parseProgram()
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return block, nil
}

func (p *parser) cur() token.Token  { return p.toks[p.pos] }
func (p *parser) curKind() token.Kind { return p.toks[p.pos].Kind }

func (p *parser) advance() token.Token {
	tok := p.toks[p.pos]
	if tok.Kind != token.EOF {
		p.pos++
	}
	return tok
}

func (p *parser) check(k token.Kind) bool { return p.curKind() == k }

func (p *parser) match(k token.Kind) bool {
	if !p.check(k) {
		return false
	}
	p.advance()
	return true
}

func (p *parser) expect(k token.Kind) token.Token {
	if !p.check(k) {
		p.errorExpected(k)
		panic(errPanic)
	}
	return p.advance()
}

func (p *parser) errorExpected(expected token.Kind) {
	cur := p.cur()
	p.errs = append(p.errs, &Error{
		Kind:     ErrExpected,
		Expected: expected,
		Found:    cur.Kind,
		Line:     cur.Pos.Line,
	})
}

func (p *parser) errorAt(kind ErrorKind, msg string) {
	cur := p.cur()
	p.errs = append(p.errs, &Error{Kind: kind, Line: cur.Pos.Line, Msg: msg})
}

// synchronize discards tokens until a likely statement boundary, so a single
// syntax error does not cascade into a wall of follow-on errors.
func (p *parser) synchronize() {
	p.advance()
	for !p.check(token.EOF) {
		if p.toks[p.pos-1].Kind == token.SEMI {
			return
		}
		switch p.curKind() {
		case token.LET, token.FUN, token.WHILE, token.IF, token.PRINT, token.RETURN, token.LBRACE:
			return
		}
		p.advance()
	}
}

func (p *parser) parseProgram() *ast.Block {
	block := &ast.Block{Lbrace: p.cur().Pos}
	for !p.check(token.EOF) {
		if stmt := p.parseDeclSafely(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	return block
}

// parseDeclSafely recovers from a panic-mode parse error by synchronizing and
// returning nil, so parseProgram and parseBlock can keep collecting further
// diagnostics instead of aborting on the first error.
func (p *parser) parseDeclSafely() (stmt ast.Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if r != errPanic {
				panic(r)
			}
			p.synchronize()
			stmt = nil
		}
	}()
	return p.parseDecl()
}

func (p *parser) parseDecl() ast.Stmt {
	switch p.curKind() {
	case token.LET:
		return p.parseLetDecl()
	case token.FUN:
		return p.parseFunDecl()
	default:
		return p.parseStmt()
	}
}

func (p *parser) parseLetDecl() ast.Stmt {
	kw := p.expect(token.LET)
	name := p.expect(token.IDENT)
	var init ast.Expr
	if p.match(token.EQUAL) {
		init = p.parseExpr()
	} else {
		init = &ast.Literal{LitPos: kw.Pos, Kind: ast.LitNil}
	}
	p.expect(token.SEMI)
	return &ast.LetAssign{KwPos: kw.Pos, Name: name.Lexeme, Init: init}
}

func (p *parser) parseFunDecl() ast.Stmt {
	kw := p.expect(token.FUN)
	name := p.expect(token.IDENT)
	p.expect(token.LPAREN)
	var sig ast.FuncSig
	if !p.check(token.RPAREN) {
		for {
			sig.Params = append(sig.Params, p.expect(token.IDENT).Lexeme)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.expect(token.RPAREN)
	p.expect(token.LBRACE)
	body := p.parseBlock()
	return &ast.Fun{KwPos: kw.Pos, Name: name.Lexeme, Sig: sig, Body: body}
}

func (p *parser) parseStmt() ast.Stmt {
	switch p.curKind() {
	case token.WHILE:
		return p.parseWhileStmt()
	case token.IF:
		return p.parseIfStmt()
	case token.PRINT:
		return p.parsePrintStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.LBRACE:
		lbrace := p.expect(token.LBRACE)
		b := p.parseBlock()
		b.Lbrace = lbrace.Pos
		return b
	default:
		return p.parseExprStmt()
	}
}

func (p *parser) parseWhileStmt() ast.Stmt {
	kw := p.expect(token.WHILE)
	cond := p.parseExpr()
	p.expect(token.LBRACE)
	body := p.parseBlock()
	return &ast.While{KwPos: kw.Pos, Cond: cond, Body: body}
}

func (p *parser) parseIfStmt() ast.Stmt {
	kw := p.expect(token.IF)
	cond := p.parseExpr()
	p.expect(token.LBRACE)
	then := p.parseBlock()
	var els *ast.Block
	if p.match(token.ELSE) {
		p.expect(token.LBRACE)
		els = p.parseBlock()
	}
	return &ast.IfElse{KwPos: kw.Pos, Cond: cond, Then: then, Else: els}
}

func (p *parser) parsePrintStmt() ast.Stmt {
	kw := p.expect(token.PRINT)
	expr := p.parseExpr()
	p.expect(token.SEMI)
	return &ast.Print{KwPos: kw.Pos, Expr: expr}
}

func (p *parser) parseReturnStmt() ast.Stmt {
	kw := p.expect(token.RETURN)
	var expr ast.Expr
	if !p.check(token.SEMI) {
		expr = p.parseExpr()
	}
	p.expect(token.SEMI)
	return &ast.Return{KwPos: kw.Pos, Expr: expr}
}

func (p *parser) parseExprStmt() ast.Stmt {
	expr := p.parseExpr()
	p.expect(token.SEMI)
	return expr
}

// parseBlock parses statements up to and including the closing '}'. The
// opening '{' must already have been consumed by the caller.
func (p *parser) parseBlock() *ast.Block {
	block := &ast.Block{Lbrace: p.cur().Pos}
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		if stmt := p.parseDeclSafely(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
	}
	p.expect(token.RBRACE)
	return block
}

func (p *parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

// parseAssignment handles the "NAME = EXPR" tail described in spec.md §4.2
// ("identifier (with optional `= EXPR` tail turning a get into a set)").
func (p *parser) parseAssignment() ast.Expr {
	expr := p.parseBinary(precAssignment + 1)

	if p.check(token.EQUAL) {
		eq := p.advance()
		value := p.parseAssignment()
		if get, ok := expr.(*ast.LetGet); ok {
			return &ast.LetSet{NamePos: get.NamePos, Name: get.Name, Value: value}
		}
		p.errs = append(p.errs, &Error{Kind: ErrUnexpected, Found: token.EQUAL, Line: eq.Pos.Line, Msg: "invalid assignment target"})
		return expr
	}
	return expr
}

// parseBinary implements Pratt-style precedence climbing: it consumes a unary
// expression, then folds in binary operators whose precedence is at least min.
func (p *parser) parseBinary(min int) ast.Expr {
	left := p.parseUnary()

	for {
		prec, ok := binPrec[p.curKind()]
		if !ok || prec < min {
			break
		}
		opTok := p.advance()
		op, ok := binOps[opTok.Kind]
		if !ok {
			p.errorAt(ErrExpectedBinaryOperator, "expected binary operator")
			break
		}
		right := p.parseBinary(prec + 1)
		left = &ast.Binary{Left: left, Op: op, OpPos: opTok.Pos, Right: right}
	}
	return left
}

func (p *parser) parseUnary() ast.Expr {
	switch p.curKind() {
	case token.MINUS:
		opTok := p.advance()
		operand := p.parseUnary()
		return &ast.Unary{Op: ast.Negate, OpPos: opTok.Pos, Expr: operand}
	case token.BANG:
		opTok := p.advance()
		operand := p.parseUnary()
		return &ast.Unary{Op: ast.Not, OpPos: opTok.Pos, Expr: operand}
	default:
		return p.parseCall()
	}
}

func (p *parser) parseCall() ast.Expr {
	expr := p.parsePrimary()
	for p.check(token.LPAREN) {
		lparen := p.advance()
		var args []ast.Expr
		if !p.check(token.RPAREN) {
			for {
				args = append(args, p.parseExpr())
				if !p.match(token.COMMA) {
					break
				}
			}
		}
		p.expect(token.RPAREN)
		expr = &ast.Call{Callee: expr, Lparen: lparen.Pos, Args: args}
	}
	return expr
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.cur()
	switch tok.Kind {
	case token.NUMBER:
		p.advance()
		return &ast.Literal{LitPos: tok.Pos, Kind: ast.LitNumber, Number: tok.Number}
	case token.STRING:
		p.advance()
		return &ast.Literal{LitPos: tok.Pos, Kind: ast.LitString, String: tok.Literal}
	case token.TRUE:
		p.advance()
		return &ast.Literal{LitPos: tok.Pos, Kind: ast.LitTrue}
	case token.FALSE:
		p.advance()
		return &ast.Literal{LitPos: tok.Pos, Kind: ast.LitFalse}
	case token.NIL:
		p.advance()
		return &ast.Literal{LitPos: tok.Pos, Kind: ast.LitNil}
	case token.IDENT:
		p.advance()
		return &ast.LetGet{NamePos: tok.Pos, Name: tok.Lexeme}
	case token.LPAREN:
		p.advance()
		inner := p.parseExpr()
		p.expect(token.RPAREN)
		return &ast.Grouping{Lparen: tok.Pos, Expr: inner}
	case token.EOF:
		p.errorAt(ErrUnexpectedEOF, "unexpected end of file")
		panic(errPanic)
	default:
		p.errorAt(ErrExpectedPrimary, "expected expression")
		panic(errPanic)
	}
}
