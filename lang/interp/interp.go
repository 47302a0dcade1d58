// Package interp wires together the lexer, parser, compiler and virtual
// machine into the embedding API described by spec.md §6, the way the
// teacher's machine.Thread.RunProgram ties the same phases together for a
// different language.
package interp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mna/wisp/lang/compiler"
	"github.com/mna/wisp/lang/parser"
	"github.com/mna/wisp/lang/vm"
)

// Interpret lexes, parses, compiles and runs source, writing any `print`
// output to os.Stdout.
func Interpret(ctx context.Context, source string) error {
	return InterpretWithSink(ctx, source, os.Stdout)
}

// InterpretWithSink is Interpret but directs `print` output to sink instead
// of os.Stdout. Tests use this to capture output for comparison.
func InterpretWithSink(ctx context.Context, source string, sink io.Writer) error {
	return InterpretWithOptions(ctx, source, sink, Options{})
}

// Options configures optional VM safety limits. spec.md §5 names no such
// limits as a language feature; these are ambient execution knobs for
// running untrusted scripts, grounded on the teacher's
// machine.Thread.MaxSteps/MaxCallStackDepth fields. The zero value means no
// limit, matching the teacher's "<= 0 means no limit" convention.
type Options struct {
	MaxSteps          int
	MaxCallStackDepth int

	// Trace, if non-nil, receives a line listing every bound global name
	// (sorted) after execution finishes, whether or not it errored.
	Trace io.Writer
}

// InterpretWithOptions is InterpretWithSink with explicit VM safety limits,
// used by the `run` CLI command to apply environment-derived configuration
// (internal/maincmd.runtimeConfig).
func InterpretWithOptions(ctx context.Context, source string, sink io.Writer, opts Options) error {
	block, err := parser.Parse(source)
	if err != nil {
		return err
	}
	fn, err := compiler.Compile(block)
	if err != nil {
		return err
	}
	machine := vm.New()
	machine.Stdout = sink
	machine.MaxSteps = opts.MaxSteps
	machine.MaxCallStackDepth = opts.MaxCallStackDepth
	runErr := machine.Interpret(ctx, fn)
	if opts.Trace != nil {
		fmt.Fprintf(opts.Trace, "globals: %s\n", strings.Join(machine.DebugGlobals(), ", "))
	}
	return runErr
}

// Compile lexes, parses and compiles source without running it, returning
// the top-level Function for disassembly or inspection by the `compile` CLI
// command.
func Compile(source string) (*compiler.Function, error) {
	block, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(block)
}
