package vm

import "github.com/mna/wisp/lang/compiler"

// Frame records one active call to a Closure: its chunk, the current
// instruction pointer into that chunk, and the value-stack slot at which its
// arguments and locals begin (spec.md §4.5).
type Frame struct {
	closure   *compiler.Closure
	ip        int
	stackBase int
}

func (f *Frame) chunk() *compiler.Chunk { return f.closure.Function.Chunk }
