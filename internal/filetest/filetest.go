// Package filetest implements the test-file protocol described by spec.md
// §6: a script is a plain source file whose expected output is encoded
// inline as `// expect: <literal>` comments, one per expected line of
// output, with `// expect runtime error: <text>` marking a script that must
// fail instead of printing further output.
package filetest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/diff"
	"github.com/mna/wisp/lang/interp"
)

// ScriptFiles returns the sorted list of ".wisp" script files directly under
// dir.
func ScriptFiles(t *testing.T, dir string) []string {
	t.Helper()

	dents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	var out []string
	for _, dent := range dents {
		if dent.IsDir() || filepath.Ext(dent.Name()) != ".wisp" {
			continue
		}
		out = append(out, filepath.Join(dir, dent.Name()))
	}
	return out
}

const (
	expectPrefix        = "// expect: "
	expectRuntimeErrPfx = "// expect runtime error: "
)

// expectations collected from a script's source comments.
type expectations struct {
	lines      []string
	runtimeErr string
	wantsErr   bool
}

func parseExpectations(src string) expectations {
	var exp expectations
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, expectRuntimeErrPfx):
			exp.runtimeErr = strings.TrimPrefix(trimmed, expectRuntimeErrPfx)
			exp.wantsErr = true
		case strings.HasPrefix(trimmed, expectPrefix):
			exp.lines = append(exp.lines, strings.TrimPrefix(trimmed, expectPrefix))
		}
	}
	return exp
}

// Run reads the script at path, interprets it, and compares its captured
// standard output against the `// expect:` comments found in the source.
// If the script instead carries a `// expect runtime error:` comment, Run
// asserts that interpretation fails and that the error's text contains the
// expected substring.
func Run(t *testing.T, path string) {
	t.Helper()

	src, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	exp := parseExpectations(string(src))

	var out bytes.Buffer
	runErr := interp.InterpretWithSink(context.Background(), string(src), &out)

	if exp.wantsErr {
		if runErr == nil {
			t.Fatalf("%s: expected a runtime error containing %q, got none", path, exp.runtimeErr)
		}
		if !strings.Contains(runErr.Error(), exp.runtimeErr) {
			t.Fatalf("%s: runtime error %q does not contain expected text %q", path, runErr, exp.runtimeErr)
		}
		return
	}

	if runErr != nil {
		t.Fatalf("%s: unexpected error: %s", path, runErr)
	}

	want := strings.Join(exp.lines, "\n")
	if len(exp.lines) > 0 {
		want += "\n"
	}
	got := out.String()
	if patch := diff.Diff(want, got); patch != "" {
		t.Errorf("%s: output mismatch:\n%s", path, patch)
	}
}
