// Package compiler takes a parsed AST and compiles it, in a single pass, to
// the bytecode executed by the virtual machine.
package compiler

import (
	"math"

	"golang.org/x/exp/slices"

	"github.com/mna/wisp/lang/ast"
	"github.com/mna/wisp/lang/value"
)

// instanceKind distinguishes the implicit top-level script from a compiled
// function body; Return is only valid inside the latter (spec.md §4.3).
type instanceKind int

const (
	kindScript instanceKind = iota
	kindFunction
)

// local tracks one slot of the current CompilerInstance's value-stack window.
type local struct {
	name        string
	depth       int
	initialized bool
}

// compilerInstance is one frame of the compiler's own call stack, pushed when
// compiling a Fun body and popped at end_compiler.
type compilerInstance struct {
	enclosing *compilerInstance
	kind      instanceKind
	function  *Function

	locals     []local
	scopeDepth int
}

// compiler drives a single-pass compile of one program's top-level Block.
type compiler struct {
	current *compilerInstance
	errs    ErrorList
}

// Compile compiles block into a top-level Function of kind Script. The
// returned error, if non-nil, is an ErrorList.
func Compile(block *ast.Block) (*Function, error) {
	c := &compiler{}
	c.pushInstance(kindScript, "")
	for _, stmt := range block.Stmts {
		c.compileStmt(stmt)
	}
	fn := c.endCompiler(block.Pos().Line)
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return fn, nil
}

func (c *compiler) pushInstance(kind instanceKind, name string) {
	fn := &Function{Name: name, Chunk: &Chunk{Name: scriptName(name)}}
	inst := &compilerInstance{
		enclosing: c.current,
		kind:      kind,
		function:  fn,
		// slot 0 is reserved for the callee itself (spec.md §4.5.1: the callee
		// occupies value_stack[base]).
		locals: []local{{name: "", depth: 0, initialized: true}},
	}
	c.current = inst
}

func scriptName(name string) string {
	if name == "" {
		return "<script>"
	}
	return name
}

// endCompiler appends the implicit `return nil;` every function (and the
// top-level script) falls through to, and pops the current instance.
func (c *compiler) endCompiler(line int) *Function {
	c.emitConstant(value.Nil, line)
	c.emit(Return, line)
	fn := c.current.function
	c.current = c.current.enclosing
	return fn
}

func (c *compiler) chunk() *Chunk { return c.current.function.Chunk }

func (c *compiler) errorf(kind ErrorKind, name string, line int) {
	c.errs = append(c.errs, &Error{Kind: kind, Name: name, Line: line})
}

// --- emission helpers ---

func (c *compiler) emit(op Opcode, line int) int {
	return c.chunk().Write(op, line)
}

func (c *compiler) emitByte(b byte, line int) int {
	return c.chunk().WriteByte(b, line)
}

func (c *compiler) emitConstant(v value.Value, line int) {
	idx := c.addConstant(v, line)
	c.emit(Constant, line)
	c.emitByte(idx, line)
}

func (c *compiler) addConstant(v Constant, line int) byte {
	if v == Constant(value.Nil) {
		// nil is interned: every nil in a chunk shares one pool entry.
		for i, k := range c.chunk().Constants {
			if k == Constant(value.Nil) {
				return byte(i)
			}
		}
	}
	if len(c.chunk().Constants) >= math.MaxUint8+1 {
		c.errorf(ErrTooManyConstants, "", line)
		return 0
	}
	return c.chunk().AddConstant(v)
}

// emitJump writes op followed by a two-byte placeholder and returns the
// offset of the placeholder's first byte, for a later patchJump call.
func (c *compiler) emitJump(op Opcode, line int) int {
	c.emit(op, line)
	off := c.emitByte(0xff, line)
	c.emitByte(0xff, line)
	return off
}

func (c *compiler) patchJump(offset, line int) {
	dist := len(c.chunk().Code) - offset - 2
	if dist > math.MaxUint16 {
		c.errorf(ErrJumpTooLarge, "", line)
		return
	}
	c.chunk().Code[offset] = byte(uint16(dist) >> 8)
	c.chunk().Code[offset+1] = byte(uint16(dist))
}

func (c *compiler) emitLoop(loopStart, line int) {
	c.emit(Loop, line)
	dist := len(c.chunk().Code) - loopStart + 2
	if dist > math.MaxUint16 {
		c.errorf(ErrJumpTooLarge, "", line)
		return
	}
	c.chunk().WriteShort(uint16(dist), line)
}

// --- scopes and locals (spec.md §4.3) ---

func (c *compiler) beginScope() { c.current.scopeDepth++ }

// endScope pops every local declared at the scope being exited, in reverse
// declaration order, emitting the matching Pop for each.
func (c *compiler) endScope(line int) {
	c.current.scopeDepth--
	locals := c.current.locals
	n := len(locals)
	for n > 0 && locals[n-1].depth > c.current.scopeDepth {
		c.emit(Pop, line)
		n--
	}
	c.current.locals = locals[:n]
}

func (c *compiler) declareVariable(name string, line int) {
	if c.current.scopeDepth == 0 {
		return
	}
	for i := len(c.current.locals) - 1; i >= 0; i-- {
		l := c.current.locals[i]
		if l.depth < c.current.scopeDepth {
			break
		}
		if l.name == name {
			c.errorf(ErrLocalAlreadyDefined, name, line)
			return
		}
	}
	c.current.locals = append(c.current.locals, local{name: name, depth: c.current.scopeDepth})
}

// markInitialized flips the most recently declared local to initialized,
// letting the name resolve inside the scope it was declared in. A function's
// own body is compiled in a separate compilerInstance, so it does not see
// this local.
func (c *compiler) markInitialized() {
	if c.current.scopeDepth == 0 {
		return
	}
	c.current.locals[len(c.current.locals)-1].initialized = true
}

// defineVariable finalizes a binding: for a local it marks it initialized;
// for a global it emits DefineGlobal against the name's constant-pool entry.
func (c *compiler) defineVariable(name string, line int) {
	if c.current.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	idx := c.addConstant(value.String(name), line)
	c.emit(DefineGlobal, line)
	c.emitByte(idx, line)
}

// resolveLocal scans the current instance's locals for the first match,
// walking backward (innermost declaration first). ok is false when absent,
// meaning the caller should fall back to treating the name as a global.
func (c *compiler) resolveLocal(name string, line int) (slot int, ok bool) {
	locals := c.current.locals
	reversed := slices.Clone(locals)
	slices.Reverse(reversed)
	pos := slices.IndexFunc(reversed, func(l local) bool { return l.name == name })
	if pos < 0 {
		return 0, false
	}
	i := len(locals) - 1 - pos
	if !locals[i].initialized {
		c.errorf(ErrLocalNotInitialized, name, line)
	}
	return i, true
}

// --- statements ---

func (c *compiler) compileStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetAssign:
		c.compileLetAssign(s)
	case *ast.Fun:
		c.compileFun(s)
	case *ast.While:
		c.compileWhile(s)
	case *ast.IfElse:
		c.compileIfElse(s)
	case *ast.Block:
		c.beginScope()
		for _, inner := range s.Stmts {
			c.compileStmt(inner)
		}
		c.endScope(s.Pos().Line)
	case *ast.Print:
		c.compileExpr(s.Expr)
		c.emit(Print, s.Pos().Line)
	case *ast.Return:
		c.compileReturn(s)
	default:
		// any remaining Expr is an expression-statement: compile it and
		// discard the result.
		c.compileExpr(stmt)
		c.emit(Pop, stmt.Pos().Line)
	}
}

func (c *compiler) compileLetAssign(s *ast.LetAssign) {
	line := s.Pos().Line
	c.declareVariable(s.Name, line)
	c.compileExpr(s.Init)
	c.defineVariable(s.Name, line)
}

func (c *compiler) compileFun(s *ast.Fun) {
	line := s.Pos().Line
	c.declareVariable(s.Name, line)
	if c.current.scopeDepth > 0 {
		c.markInitialized()
	}

	c.pushInstance(kindFunction, s.Name)
	c.beginScope()
	for _, param := range s.Sig.Params {
		c.declareVariable(param, line)
		c.markInitialized()
	}
	for _, stmt := range s.Body.Stmts {
		c.compileStmt(stmt)
	}
	fn := c.endCompiler(line)
	fn.Arity = len(s.Sig.Params)

	idx := c.addConstant(fn, line)
	c.emit(Closure, line)
	c.emitByte(idx, line)
	c.defineVariable(s.Name, line)
}

func (c *compiler) compileWhile(s *ast.While) {
	line := s.Pos().Line
	loopStart := len(c.chunk().Code)
	c.compileExpr(s.Cond)
	exitJump := c.emitJump(JumpIfFalse, line)
	c.emit(Pop, line)
	c.compileStmt(s.Body)
	c.emitLoop(loopStart, line)
	c.patchJump(exitJump, line)
	c.emit(Pop, line)
}

func (c *compiler) compileIfElse(s *ast.IfElse) {
	line := s.Pos().Line
	c.compileExpr(s.Cond)
	thenJump := c.emitJump(JumpIfFalse, line)
	c.emit(Pop, line)
	c.compileStmt(s.Then)
	elseJump := c.emitJump(Jump, line)
	c.patchJump(thenJump, line)
	c.emit(Pop, line)
	if s.Else != nil {
		c.compileStmt(s.Else)
	}
	c.patchJump(elseJump, line)
}

func (c *compiler) compileReturn(s *ast.Return) {
	line := s.Pos().Line
	if c.current.kind == kindScript {
		c.errorf(ErrInvalidReturn, "", line)
	}
	if s.Expr != nil {
		c.compileExpr(s.Expr)
	} else {
		c.emitConstant(value.Nil, line)
	}
	c.emit(Return, line)
}

// --- expressions ---

func (c *compiler) compileExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Literal:
		c.compileLiteral(e)
	case *ast.Grouping:
		c.compileExpr(e.Expr)
	case *ast.Binary:
		c.compileBinary(e)
	case *ast.Unary:
		c.compileUnary(e)
	case *ast.LetGet:
		c.compileLetGet(e)
	case *ast.LetSet:
		c.compileLetSet(e)
	case *ast.Call:
		c.compileCall(e)
	default:
		// Fun, Block, etc. used in expression position never reach here: only
		// statement-shaped nodes flow through ast.Stmt's unified interface.
	}
}

func (c *compiler) compileLiteral(e *ast.Literal) {
	line := e.Pos().Line
	switch e.Kind {
	case ast.LitNumber:
		c.emitConstant(value.Number(e.Number), line)
	case ast.LitString:
		c.emitConstant(value.String(e.String), line)
	case ast.LitTrue:
		c.emitConstant(value.Bool(true), line)
	case ast.LitFalse:
		c.emitConstant(value.Bool(false), line)
	case ast.LitNil:
		c.emitConstant(value.Nil, line)
	}
}

func (c *compiler) compileBinary(e *ast.Binary) {
	line := e.Pos().Line
	c.compileExpr(e.Left)
	c.compileExpr(e.Right)
	switch e.Op {
	case ast.Add:
		c.emit(Add, line)
	case ast.Sub:
		c.emit(Sub, line)
	case ast.Mul:
		c.emit(Mul, line)
	case ast.Div:
		c.emit(Div, line)
	case ast.Eq:
		c.emit(Equal, line)
	case ast.NotEq:
		c.emit(Equal, line)
		c.emit(Not, line)
	case ast.Lt:
		c.emit(Less, line)
	case ast.LtEq:
		c.emit(Greater, line)
		c.emit(Not, line)
	case ast.Gt:
		c.emit(Greater, line)
	case ast.GtEq:
		c.emit(Less, line)
		c.emit(Not, line)
	}
}

func (c *compiler) compileUnary(e *ast.Unary) {
	line := e.Pos().Line
	c.compileExpr(e.Expr)
	switch e.Op {
	case ast.Negate:
		c.emit(Negate, line)
	case ast.Not:
		c.emit(Not, line)
	}
}

func (c *compiler) compileLetGet(e *ast.LetGet) {
	line := e.Pos().Line
	if slot, ok := c.resolveLocal(e.Name, line); ok {
		c.emit(GetLocal, line)
		c.emitByte(byte(slot), line)
		return
	}
	idx := c.addConstant(value.String(e.Name), line)
	c.emit(GetGlobal, line)
	c.emitByte(idx, line)
}

func (c *compiler) compileLetSet(e *ast.LetSet) {
	line := e.Pos().Line
	c.compileExpr(e.Value)
	if slot, ok := c.resolveLocal(e.Name, line); ok {
		c.emit(SetLocal, line)
		c.emitByte(byte(slot), line)
		return
	}
	idx := c.addConstant(value.String(e.Name), line)
	c.emit(SetGlobal, line)
	c.emitByte(idx, line)
}

func (c *compiler) compileCall(e *ast.Call) {
	line := e.Pos().Line
	c.compileExpr(e.Callee)
	if len(e.Args) > math.MaxUint8 {
		c.errorf(ErrTooManyArgs, "", line)
	}
	for _, arg := range e.Args {
		c.compileExpr(arg)
	}
	c.emit(Call, line)
	c.emitByte(byte(len(e.Args)), line)
}
