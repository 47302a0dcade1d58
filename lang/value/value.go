// Package value defines the primitive runtime values shared by the
// compiler's constant pool and the VM's value stack (spec.md §2, §5).
//
// Function and Closure, the two heap-allocated kinds, live in package
// compiler alongside the Chunk they wrap (see compiler.Function and
// compiler.Closure): both satisfy the Value interface below structurally,
// which keeps this package free of a dependency back on the compiler.
package value

import (
	"strconv"
)

// Value is the tagged union of runtime values: Number, Bool, Nil, String,
// *compiler.Function or *compiler.Closure.
type Value interface {
	// Type names the dynamic type, for diagnostics (e.g. ArgumentTypes errors).
	Type() string
	// String renders the value the way `print` writes it to the output sink.
	String() string
	// Truthy implements the language's truthiness rule: only Bool(false) and
	// Nil are false, everything else is true.
	Truthy() bool
}

// Number is a double-precision float.
type Number float64

func (Number) Type() string     { return "number" }
func (n Number) String() string { return strconv.FormatFloat(float64(n), 'g', -1, 64) }
func (Number) Truthy() bool     { return true }

// Bool is a boolean.
type Bool bool

func (Bool) Type() string     { return "bool" }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }
func (b Bool) Truthy() bool   { return bool(b) }

// nilType is the concrete type behind Nil.
type nilType struct{}

func (nilType) Type() string   { return "nil" }
func (nilType) String() string { return "nil" }
func (nilType) Truthy() bool   { return false }

// Nil is the language's single nil value. spec.md's Open Question (ii)
// resolves `nil` literals to one canonical interned constant; every chunk
// that compiles a `nil` literal shares this same value.
var Nil Value = nilType{}

// String is an immutable string value.
type String string

func (String) Type() string     { return "string" }
func (s String) String() string { return string(s) }
func (String) Truthy() bool     { return true }

// Equal implements spec.md §4.5's Equal opcode semantics: Number/Number
// compares numerically, Bool/Bool compares, every other mixed pair is false.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case nilType:
		_, ok := b.(nilType)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	default:
		return a == b
	}
}
