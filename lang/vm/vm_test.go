package vm_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/value"
	"github.com/mna/wisp/lang/vm"
	"github.com/stretchr/testify/require"
)

// buildScript assembles a minimal top-level Function by hand, bypassing the
// compiler, to exercise the dispatch loop's opcode semantics directly.
func buildScript(constants []compiler.Constant, code []byte) *compiler.Function {
	return &compiler.Function{
		Chunk: &compiler.Chunk{
			Name:      "<script>",
			Code:      code,
			Constants: constants,
		},
	}
}

func TestVMConstantAndPrint(t *testing.T) {
	fn := buildScript(
		[]compiler.Constant{value.Number(42)},
		[]byte{
			byte(compiler.Constant), 0,
			byte(compiler.Print),
			byte(compiler.Constant), 0, // implicit return value (nil not needed here)
			byte(compiler.Return),
		},
	)

	var buf bytes.Buffer
	machine := vm.New()
	machine.Stdout = &buf
	err := machine.Interpret(context.Background(), fn)
	require.NoError(t, err)
	require.Equal(t, "42\n", buf.String())
}

func TestVMArithmetic(t *testing.T) {
	fn := buildScript(
		[]compiler.Constant{value.Number(3), value.Number(4)},
		[]byte{
			byte(compiler.Constant), 0,
			byte(compiler.Constant), 1,
			byte(compiler.Add),
			byte(compiler.Print),
			byte(compiler.Constant), 0,
			byte(compiler.Return),
		},
	)

	var buf bytes.Buffer
	machine := vm.New()
	machine.Stdout = &buf
	require.NoError(t, machine.Interpret(context.Background(), fn))
	require.Equal(t, "7\n", buf.String())
}

func TestVMUndefinedGlobalGet(t *testing.T) {
	fn := buildScript(
		[]compiler.Constant{value.String("x")},
		[]byte{
			byte(compiler.GetGlobal), 0,
			byte(compiler.Return),
		},
	)

	machine := vm.New()
	err := machine.Interpret(context.Background(), fn)
	require.Error(t, err)
	var verr *vm.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vm.ErrUndefinedGlobal, verr.Kind)
	require.Equal(t, "x", verr.Name)
}

func TestVMDefineThenGetGlobal(t *testing.T) {
	fn := buildScript(
		[]compiler.Constant{value.String("x"), value.Number(9)},
		[]byte{
			byte(compiler.Constant), 1,
			byte(compiler.DefineGlobal), 0,
			byte(compiler.GetGlobal), 0,
			byte(compiler.Print),
			byte(compiler.Constant), 1,
			byte(compiler.Return),
		},
	)

	var buf bytes.Buffer
	machine := vm.New()
	machine.Stdout = &buf
	require.NoError(t, machine.Interpret(context.Background(), fn))
	require.Equal(t, "9\n", buf.String())
}

func TestVMNegateNonNumberIsArgumentTypesError(t *testing.T) {
	fn := buildScript(
		[]compiler.Constant{value.String("a")},
		[]byte{
			byte(compiler.Constant), 0,
			byte(compiler.Negate),
			byte(compiler.Return),
		},
	)

	machine := vm.New()
	err := machine.Interpret(context.Background(), fn)
	require.Error(t, err)
	var verr *vm.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vm.ErrArgumentTypes, verr.Kind)
}

func TestVMCallIncorrectArity(t *testing.T) {
	inner := &compiler.Function{Name: "f", Arity: 1, Chunk: &compiler.Chunk{
		Code: []byte{byte(compiler.Constant), 0, byte(compiler.Return)},
		Constants: []compiler.Constant{value.Nil},
	}}

	fn := buildScript(
		[]compiler.Constant{inner},
		[]byte{
			byte(compiler.Closure), 0,
			byte(compiler.Call), 0, // calling with 0 args, function wants 1
			byte(compiler.Return),
		},
	)

	machine := vm.New()
	err := machine.Interpret(context.Background(), fn)
	require.Error(t, err)
	var verr *vm.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vm.ErrIncorrectArity, verr.Kind)
}

func TestVMStepLimitIsEnforced(t *testing.T) {
	// A Loop instruction whose target is itself: an infinite loop that only a
	// step limit can terminate.
	fn := buildScript(nil, []byte{byte(compiler.Loop), 0, 3})

	machine := vm.New()
	machine.MaxSteps = 5
	err := machine.Interpret(context.Background(), fn)
	require.Error(t, err)
	var verr *vm.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vm.ErrStepLimit, verr.Kind)
}

func TestVMCallStackOverflowIsEnforced(t *testing.T) {
	// A zero-arity function whose body calls itself: unbounded recursion that
	// only a call-depth limit can terminate.
	inner := &compiler.Function{Name: "loop", Chunk: &compiler.Chunk{}}
	inner.Chunk.Constants = []compiler.Constant{inner}
	inner.Chunk.Code = []byte{
		byte(compiler.Closure), 0,
		byte(compiler.Call), 0,
		byte(compiler.Return),
	}

	fn := buildScript(
		[]compiler.Constant{inner},
		[]byte{
			byte(compiler.Closure), 0,
			byte(compiler.Call), 0,
			byte(compiler.Return),
		},
	)

	machine := vm.New()
	machine.MaxCallStackDepth = 8
	err := machine.Interpret(context.Background(), fn)
	require.Error(t, err)
	var verr *vm.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vm.ErrCallStackOverflow, verr.Kind)
}

func TestVMDebugGlobalsSortsNames(t *testing.T) {
	fn := buildScript(
		[]compiler.Constant{value.String("b"), value.Number(1), value.String("a"), value.Number(2)},
		[]byte{
			byte(compiler.Constant), 1,
			byte(compiler.DefineGlobal), 0,
			byte(compiler.Constant), 3,
			byte(compiler.DefineGlobal), 2,
			byte(compiler.Constant), 1,
			byte(compiler.Return),
		},
	)

	machine := vm.New()
	require.NoError(t, machine.Interpret(context.Background(), fn))
	require.Equal(t, []string{"a", "b"}, machine.DebugGlobals())
}

func TestVMEqualAcrossTypesIsFalse(t *testing.T) {
	fn := buildScript(
		[]compiler.Constant{value.Number(1), value.String("1")},
		[]byte{
			byte(compiler.Constant), 0,
			byte(compiler.Constant), 1,
			byte(compiler.Equal),
			byte(compiler.Print),
			byte(compiler.Constant), 0,
			byte(compiler.Return),
		},
	)

	var buf bytes.Buffer
	machine := vm.New()
	machine.Stdout = &buf
	require.NoError(t, machine.Interpret(context.Background(), fn))
	require.Equal(t, "false\n", buf.String())
}
