package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mna/mainer"
	"github.com/mna/wisp/lang/interp"
)

func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	return RunFiles(ctx, stdio, c.NoColor, args...)
}

// RunFiles interprets each file in turn, writing `print` output to
// stdio.Stdout and diagnostics to stdio.Stderr. VM safety limits and the
// debug-trace flag come from the process environment (see config.go).
func RunFiles(ctx context.Context, stdio mainer.Stdio, noColor bool, files ...string) error {
	errColor := color.New(color.FgRed)
	errColor.EnableColor()
	if noColor {
		errColor.DisableColor()
	}

	cfg, err := loadRuntimeConfig()
	if err != nil {
		fmt.Fprintln(stdio.Stderr, errColor.Sprint(err))
		return err
	}
	opts := interp.Options{MaxSteps: cfg.MaxSteps, MaxCallStackDepth: cfg.MaxCallStackDepth}
	if cfg.DebugTrace {
		opts.Trace = stdio.Stderr
	}

	var lastErr error
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			lastErr = err
			fmt.Fprintln(stdio.Stderr, errColor.Sprint(err))
			continue
		}
		if err := interp.InterpretWithOptions(ctx, string(src), stdio.Stdout, opts); err != nil {
			lastErr = err
			fmt.Fprintln(stdio.Stderr, errColor.Sprintf("%s: %s", file, err))
		}
	}
	return lastErr
}
