package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/wisp/lang/interp"
)

func (c *Cmd) Compile(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return CompileFiles(stdio, args...)
}

// CompileFiles compiles each file and prints its disassembled bytecode to
// stdio.Stdout.
func CompileFiles(stdio mainer.Stdio, files ...string) error {
	var lastErr error
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			lastErr = printError(stdio, err)
			continue
		}
		fn, err := interp.Compile(string(src))
		if err != nil {
			lastErr = printError(stdio, fmt.Errorf("%s: %w", file, err))
			continue
		}
		fmt.Fprint(stdio.Stdout, fn.Chunk.Disassemble())
	}
	return lastErr
}
