package maincmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/mna/mainer"
	"github.com/mna/wisp/lang/interp"
)

func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunRepl(ctx, stdio, c.NoColor)
}

// RunRepl reads statements from stdio.Stdin, one `interp.InterpretWithSink`
// call per complete statement, echoing `print` output to stdio.Stdout until
// EOF. An interrupt discards any pending input and prompts again. A line is
// not complete until its braces balance, so a `fun` or `while` body can span
// multiple lines.
func RunRepl(ctx context.Context, stdio mainer.Stdio, noColor bool) error {
	errColor := color.New(color.FgRed)
	errColor.EnableColor()
	if noColor {
		errColor.DisableColor()
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "wisp> ",
		Stdin:           io.NopCloser(stdio.Stdin),
		Stdout:          stdio.Stdout,
		Stderr:          stdio.Stderr,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	var pending strings.Builder
	depth := 0
	for {
		prompt := "wisp> "
		if pending.Len() > 0 {
			prompt = "   .. "
		}
		rl.SetPrompt(prompt)

		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			pending.Reset()
			depth = 0
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		depth += strings.Count(line, "{") - strings.Count(line, "}")
		pending.WriteString(line)
		pending.WriteByte('\n')
		if depth > 0 {
			continue
		}

		src := pending.String()
		pending.Reset()
		depth = 0
		if strings.TrimSpace(src) == "" {
			continue
		}
		if err := interp.InterpretWithSink(ctx, src, stdio.Stdout); err != nil {
			fmt.Fprintln(stdio.Stderr, errColor.Sprint(err))
		}
	}
}
