package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/wisp/lang/lexer"
)

func (c *Cmd) Tokenize(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return TokenizeFiles(stdio, args...)
}

// TokenizeFiles lexes each file in turn and prints its tokens to stdio.Stdout.
func TokenizeFiles(stdio mainer.Stdio, files ...string) error {
	var lastErr error
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			lastErr = printError(stdio, err)
			continue
		}
		toks, err := lexer.Tokenize(string(src))
		if err != nil {
			lastErr = printError(stdio, fmt.Errorf("%s: %w", file, err))
			continue
		}
		for _, tok := range toks {
			fmt.Fprintln(stdio.Stdout, lexer.String(tok))
		}
	}
	return lastErr
}
