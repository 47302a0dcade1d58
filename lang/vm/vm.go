// Package vm implements the stack-based virtual machine that executes
// bytecode chunks produced by package compiler (spec.md §4.5).
package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dolthub/swiss"
	"golang.org/x/exp/maps"

	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/value"
)

// VM is a single-threaded bytecode interpreter. It owns the value stack, the
// call-frame stack and the global variable table exclusively: nothing
// outside the dispatch loop mutates them (spec.md §5).
type VM struct {
	// Stdout receives `print` output. Defaults to os.Stdout when nil.
	Stdout io.Writer

	// MaxSteps is the maximum number of dispatch-loop iterations run before
	// Interpret gives up with an ErrStepLimit, a deliberately unspecified
	// measure of execution time. A value <= 0 means no limit. This is a
	// safety knob for running untrusted scripts, not a language feature: the
	// language itself has no notion of a step budget.
	MaxSteps int

	// MaxCallStackDepth limits the number of nested Frames. A value <= 0
	// means no limit.
	MaxCallStackDepth int

	stack   []value.Value
	frames  []*Frame
	globals *swiss.Map[string, value.Value]
}

// New returns a VM with an empty global table, ready to Interpret a compiled
// Function.
func New() *VM {
	return &VM{globals: swiss.NewMap[string, value.Value](64)}
}

// DebugGlobals returns every currently bound global name, sorted, for the
// `run` command's debug-trace flag.
func (vm *VM) DebugGlobals() []string {
	snapshot := make(map[string]value.Value, vm.globals.Count())
	vm.globals.Iter(func(k string, v value.Value) bool {
		snapshot[k] = v
		return false
	})
	names := maps.Keys(snapshot)
	sort.Strings(names)
	return names
}

func (vm *VM) stdout() io.Writer {
	if vm.Stdout != nil {
		return vm.Stdout
	}
	return os.Stdout
}

// Interpret wraps fn in a Closure, pushes it as slot 0 of the value stack,
// calls it with arity 0, and runs the dispatch loop until the frame stack is
// empty (spec.md §4.5). ctx is accepted for symmetry with the rest of the
// embedding API's blocking operations; per spec.md §5 the VM has no
// cancellation or suspension points, so it is not consulted.
func (vm *VM) Interpret(ctx context.Context, fn *compiler.Function) error {
	_ = ctx
	closure := &compiler.Closure{Function: fn}
	vm.push(closure)
	if err := vm.callValue(0, 0); err != nil {
		return err
	}
	return vm.run()
}

func (vm *VM) push(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) pop(line int) (value.Value, error) {
	n := len(vm.stack)
	if n == 0 {
		return nil, &Error{Kind: ErrStackEmpty, Line: line}
	}
	v := vm.stack[n-1]
	vm.stack = vm.stack[:n-1]
	return v, nil
}

func (vm *VM) peek(line int) (value.Value, error) {
	n := len(vm.stack)
	if n == 0 {
		return nil, &Error{Kind: ErrStackEmpty, Line: line}
	}
	return vm.stack[n-1], nil
}

func (vm *VM) frame() (*Frame, error) {
	if len(vm.frames) == 0 {
		return nil, &Error{Kind: ErrFrameEmpty}
	}
	return vm.frames[len(vm.frames)-1], nil
}

func (vm *VM) run() error {
	var steps int
	for len(vm.frames) > 0 {
		if vm.MaxSteps > 0 {
			steps++
			if steps > vm.MaxSteps {
				return &Error{Kind: ErrStepLimit, Line: vm.frames[len(vm.frames)-1].chunk().Line(vm.frames[len(vm.frames)-1].ip)}
			}
		}
		frame, err := vm.frame()
		if err != nil {
			return err
		}
		line := frame.chunk().Line(frame.ip)
		op, err := vm.readByte(frame)
		if err != nil {
			return err
		}

		switch compiler.Opcode(op) {
		case compiler.Constant:
			idx, err := vm.readByte(frame)
			if err != nil {
				return err
			}
			v, err := vm.readConstant(frame, idx, line)
			if err != nil {
				return err
			}
			vm.push(v)

		case compiler.Pop:
			if _, err := vm.pop(line); err != nil {
				return err
			}

		case compiler.Add, compiler.Sub, compiler.Mul, compiler.Div:
			if err := vm.binaryArith(compiler.Opcode(op), line); err != nil {
				return err
			}

		case compiler.Equal:
			b, err := vm.pop(line)
			if err != nil {
				return err
			}
			a, err := vm.pop(line)
			if err != nil {
				return err
			}
			vm.push(value.Bool(value.Equal(a, b)))

		case compiler.Greater, compiler.Less:
			if err := vm.binaryCompare(compiler.Opcode(op), line); err != nil {
				return err
			}

		case compiler.Not:
			a, err := vm.pop(line)
			if err != nil {
				return err
			}
			vm.push(value.Bool(!a.Truthy()))

		case compiler.Negate:
			a, err := vm.pop(line)
			if err != nil {
				return err
			}
			n, ok := a.(value.Number)
			if !ok {
				return &Error{Kind: ErrArgumentTypes, Line: line}
			}
			vm.push(-n)

		case compiler.GetLocal:
			slot, err := vm.readByte(frame)
			if err != nil {
				return err
			}
			idx := frame.stackBase + int(slot)
			if idx < 0 || idx >= len(vm.stack) {
				return &Error{Kind: ErrBadStackIndex, Line: line}
			}
			vm.push(vm.stack[idx])

		case compiler.SetLocal:
			slot, err := vm.readByte(frame)
			if err != nil {
				return err
			}
			v, err := vm.peek(line)
			if err != nil {
				return err
			}
			idx := frame.stackBase + int(slot)
			if idx < 0 || idx >= len(vm.stack) {
				return &Error{Kind: ErrBadStackIndex, Line: line}
			}
			vm.stack[idx] = v

		case compiler.DefineGlobal:
			idx, err := vm.readByte(frame)
			if err != nil {
				return err
			}
			name, err := vm.readConstantString(frame, idx, line)
			if err != nil {
				return err
			}
			v, err := vm.pop(line)
			if err != nil {
				return err
			}
			vm.globals.Put(name, v)

		case compiler.GetGlobal:
			idx, err := vm.readByte(frame)
			if err != nil {
				return err
			}
			name, err := vm.readConstantString(frame, idx, line)
			if err != nil {
				return err
			}
			v, ok := vm.globals.Get(name)
			if !ok {
				return &Error{Kind: ErrUndefinedGlobal, Name: name, Line: line}
			}
			vm.push(v)

		case compiler.SetGlobal:
			idx, err := vm.readByte(frame)
			if err != nil {
				return err
			}
			name, err := vm.readConstantString(frame, idx, line)
			if err != nil {
				return err
			}
			v, err := vm.peek(line)
			if err != nil {
				return err
			}
			if _, ok := vm.globals.Get(name); !ok {
				return &Error{Kind: ErrUndefinedGlobal, Name: name, Line: line}
			}
			vm.globals.Put(name, v)

		case compiler.Jump:
			dist, err := vm.readShort(frame)
			if err != nil {
				return err
			}
			frame.ip += int(dist)

		case compiler.JumpIfFalse:
			dist, err := vm.readShort(frame)
			if err != nil {
				return err
			}
			v, err := vm.peek(line)
			if err != nil {
				return err
			}
			if !v.Truthy() {
				frame.ip += int(dist)
			}

		case compiler.Loop:
			dist, err := vm.readShort(frame)
			if err != nil {
				return err
			}
			frame.ip -= int(dist)

		case compiler.Call:
			arity, err := vm.readByte(frame)
			if err != nil {
				return err
			}
			if err := vm.callValue(arity, line); err != nil {
				return err
			}

		case compiler.Closure:
			idx, err := vm.readByte(frame)
			if err != nil {
				return err
			}
			c, err := vm.readConstant(frame, idx, line)
			if err != nil {
				return err
			}
			fn, ok := c.(*compiler.Function)
			if !ok {
				return &Error{Kind: ErrInvalidCallee, Line: line}
			}
			vm.push(&compiler.Closure{Function: fn})

		case compiler.Return:
			result, err := vm.pop(line)
			if err != nil {
				return err
			}
			returning := frame
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.stack = vm.stack[:returning.stackBase]
			vm.push(result)

		case compiler.Print:
			v, err := vm.pop(line)
			if err != nil {
				return err
			}
			fmt.Fprintln(vm.stdout(), v.String())

		default:
			return &Error{Kind: ErrInvalidCallee, Line: line}
		}
	}
	return nil
}

func (vm *VM) binaryArith(op compiler.Opcode, line int) error {
	b, err := vm.pop(line)
	if err != nil {
		return err
	}
	a, err := vm.pop(line)
	if err != nil {
		return err
	}
	an, aok := a.(value.Number)
	bn, bok := b.(value.Number)
	if !aok || !bok {
		return &Error{Kind: ErrArgumentTypes, Line: line}
	}
	switch op {
	case compiler.Add:
		vm.push(an + bn)
	case compiler.Sub:
		vm.push(an - bn)
	case compiler.Mul:
		vm.push(an * bn)
	case compiler.Div:
		vm.push(an / bn)
	}
	return nil
}

func (vm *VM) binaryCompare(op compiler.Opcode, line int) error {
	b, err := vm.pop(line)
	if err != nil {
		return err
	}
	a, err := vm.pop(line)
	if err != nil {
		return err
	}
	an, aok := a.(value.Number)
	bn, bok := b.(value.Number)
	if !aok || !bok {
		// spec.md §4.5: mismatched types compare false, they do not error.
		vm.push(value.Bool(false))
		return nil
	}
	switch op {
	case compiler.Greater:
		vm.push(value.Bool(an > bn))
	case compiler.Less:
		vm.push(value.Bool(an < bn))
	}
	return nil
}

// callValue implements spec.md §4.5.1.
func (vm *VM) callValue(arity byte, line int) error {
	base := len(vm.stack) - (int(arity) + 1)
	if base < 0 {
		return &Error{Kind: ErrBadStackIndex, Line: line}
	}
	callee := vm.stack[base]
	closure, ok := callee.(*compiler.Closure)
	if !ok {
		return &Error{Kind: ErrInvalidCallee, Line: line}
	}
	if int(arity) != closure.Function.Arity {
		return &Error{Kind: ErrIncorrectArity, Line: line}
	}
	if vm.MaxCallStackDepth > 0 && len(vm.frames) >= vm.MaxCallStackDepth {
		return &Error{Kind: ErrCallStackOverflow, Line: line}
	}
	vm.frames = append(vm.frames, &Frame{closure: closure, ip: 0, stackBase: base})
	return nil
}

func (vm *VM) readByte(frame *Frame) (byte, error) {
	code := frame.chunk().Code
	if frame.ip >= len(code) {
		return 0, &Error{Kind: ErrBadStackIndex, Line: frame.chunk().Line(frame.ip - 1)}
	}
	b := code[frame.ip]
	frame.ip++
	return b, nil
}

func (vm *VM) readShort(frame *Frame) (uint16, error) {
	hi, err := vm.readByte(frame)
	if err != nil {
		return 0, err
	}
	lo, err := vm.readByte(frame)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

func (vm *VM) readConstant(frame *Frame, idx byte, line int) (value.Value, error) {
	consts := frame.chunk().Constants
	if int(idx) >= len(consts) {
		return nil, &Error{Kind: ErrBadStackIndex, Line: line}
	}
	c := consts[idx]
	v, ok := c.(value.Value)
	if !ok {
		return nil, &Error{Kind: ErrBadStackIndex, Line: line}
	}
	return v, nil
}

func (vm *VM) readConstantString(frame *Frame, idx byte, line int) (string, error) {
	v, err := vm.readConstant(frame, idx, line)
	if err != nil {
		return "", err
	}
	s, ok := v.(value.String)
	if !ok {
		return "", &Error{Kind: ErrBadStackIndex, Line: line}
	}
	return string(s), nil
}
