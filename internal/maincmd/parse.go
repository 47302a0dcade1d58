package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/wisp/lang/ast"
	"github.com/mna/wisp/lang/parser"
)

func (c *Cmd) Parse(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return ParseFiles(stdio, args...)
}

// ParseFiles parses each file in turn and prints its syntax tree to
// stdio.Stdout.
func ParseFiles(stdio mainer.Stdio, files ...string) error {
	printer := ast.Printer{Output: stdio.Stdout}

	var lastErr error
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			lastErr = printError(stdio, err)
			continue
		}
		block, err := parser.Parse(string(src))
		if err != nil {
			lastErr = printError(stdio, fmt.Errorf("%s: %w", file, err))
			continue
		}
		printer.Print(block)
	}
	return lastErr
}
