package compiler

import "fmt"

// Function is a compiled, named callable: its chunk, arity, and the name used
// for disassembly and runtime diagnostics. Functions are immutable once
// compileFun has set their arity (spec.md §5): nothing mutates a Function
// after compilation, so sharing one across many Closure handles needs no
// locking.
type Function struct {
	Name  string
	Arity int
	Chunk *Chunk
}

func (f *Function) Type() string { return "function" }

func (f *Function) String() string {
	if f.Name == "" {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name)
}

func (*Function) Truthy() bool { return true }

// Closure wraps a Function handle for the call stack. The language has no
// free-variable capture, so a Closure is a thin handle over its Function,
// matching the "most complete variant" resolved by the Open Question on
// closure compilation: a Closure opcode is emitted in the enclosing chunk
// referencing the function's constant-pool entry.
type Closure struct {
	Function *Function
}

func (c *Closure) Type() string   { return "closure" }
func (c *Closure) String() string { return c.Function.String() }
func (*Closure) Truthy() bool     { return true }
