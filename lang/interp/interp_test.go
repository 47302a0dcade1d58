package interp_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/mna/wisp/lang/interp"
	"github.com/mna/wisp/lang/vm"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) string {
	t.Helper()
	var buf bytes.Buffer
	err := interp.InterpretWithSink(context.Background(), src, &buf)
	require.NoError(t, err)
	return buf.String()
}

func TestArithmeticPrint(t *testing.T) {
	require.Equal(t, "7\n", run(t, `print 1 + 2 * 3;`))
}

func TestLocalScoping(t *testing.T) {
	out := run(t, `
		let x = 1;
		{
			let x = 2;
			print x;
		}
		print x;
	`)
	require.Equal(t, "2\n1\n", out)
}

func TestWhileLoop(t *testing.T) {
	out := run(t, `
		let i = 0;
		while i < 3 {
			print i;
			i = i + 1;
		}
	`)
	require.Equal(t, "0\n1\n2\n", out)
}

func TestIfElse(t *testing.T) {
	out := run(t, `
		if 1 < 2 {
			print "yes";
		} else {
			print "no";
		}
	`)
	require.Equal(t, "yes\n", out)
}

func TestFunctionAndReturn(t *testing.T) {
	out := run(t, `
		fun add(a, b) {
			return a + b;
		}
		print add(2, 3);
	`)
	require.Equal(t, "5\n", out)
}

func TestRecursiveFunction(t *testing.T) {
	out := run(t, `
		fun fact(n) {
			if n < 2 {
				return 1;
			}
			return n * fact(n - 1);
		}
		print fact(5);
	`)
	require.Equal(t, "120\n", out)
}

func TestUndefinedGlobalIsRuntimeError(t *testing.T) {
	var buf bytes.Buffer
	err := interp.InterpretWithSink(context.Background(), `print missing;`, &buf)
	require.Error(t, err)

	var verr *vm.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vm.ErrUndefinedGlobal, verr.Kind)
	require.Equal(t, "missing", verr.Name)
}

func TestAssignToUndefinedGlobalIsRuntimeError(t *testing.T) {
	var buf bytes.Buffer
	err := interp.InterpretWithSink(context.Background(), `missing = 1;`, &buf)
	require.Error(t, err)

	var verr *vm.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vm.ErrUndefinedGlobal, verr.Kind)
}

func TestIncorrectArityIsRuntimeError(t *testing.T) {
	var buf bytes.Buffer
	err := interp.InterpretWithSink(context.Background(), `
		fun f(a, b) { return a; }
		f(1);
	`, &buf)
	require.Error(t, err)

	var verr *vm.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vm.ErrIncorrectArity, verr.Kind)
}

func TestCallingNonCallableIsRuntimeError(t *testing.T) {
	var buf bytes.Buffer
	err := interp.InterpretWithSink(context.Background(), `
		let x = 1;
		x();
	`, &buf)
	require.Error(t, err)

	var verr *vm.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vm.ErrInvalidCallee, verr.Kind)
}

func TestNegatingNonNumberIsRuntimeError(t *testing.T) {
	var buf bytes.Buffer
	err := interp.InterpretWithSink(context.Background(), `print -"a";`, &buf)
	require.Error(t, err)

	var verr *vm.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vm.ErrArgumentTypes, verr.Kind)
}

func TestComparisonAcrossTypesIsFalseNotError(t *testing.T) {
	require.Equal(t, "false\n", run(t, `print 1 < "a";`))
}

func TestCompileErrorFromInvalidReturn(t *testing.T) {
	_, err := interp.Compile(`return 1;`)
	require.Error(t, err)
}

func TestInterpretWithOptionsEnforcesStepLimit(t *testing.T) {
	var buf bytes.Buffer
	err := interp.InterpretWithOptions(context.Background(), `
		while true {
			print 1;
		}
	`, &buf, interp.Options{MaxSteps: 50})
	require.Error(t, err)

	var verr *vm.Error
	require.ErrorAs(t, err, &verr)
	require.Equal(t, vm.ErrStepLimit, verr.Kind)
}

func TestInterpretWithOptionsTrace(t *testing.T) {
	var out, trace bytes.Buffer
	err := interp.InterpretWithOptions(context.Background(), `
		let b = 1;
		let a = 2;
	`, &out, interp.Options{Trace: &trace})
	require.NoError(t, err)
	require.Equal(t, "globals: a, b\n", trace.String())
}
