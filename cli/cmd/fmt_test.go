package cmd

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/cmds/lang/parser"
)

const fmtSource = `greet = fn(name) {   "hello {{ name }}" }
for x in [1,2] { print(greet(x)) }
`

func TestFmtNative(t *testing.T) {
	ctx, stdout, _ := testContext(t, fmtSource)

	if err := (&Native{Indent: 2, Source: stdinSource}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := stdout.String()

	if !strings.Contains(out, "greet = fn(name) {") {
		t.Errorf("formatted output missing function:\n%s", out)
	}

	// the canonical form is a fixed point
	ctx, again, _ := testContext(t, out)

	if err := (&Native{Indent: 2, Source: stdinSource}).Run(ctx); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	if again.String() != out {
		t.Errorf("formatting is not idempotent:\nfirst:\n%s\nsecond:\n%s", out, again.String())
	}
}

func TestFmtTokens(t *testing.T) {
	ctx, stdout, _ := testContext(t, "x = 1")

	if err := (&Tokens{Source: stdinSource}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) < 3 {
		t.Fatalf("got %d token lines, want at least 3:\n%s", len(lines), stdout.String())
	}

	if !strings.HasPrefix(lines[0], "1:1\t") {
		t.Errorf("first token line = %q, want position 1:1", lines[0])
	}
}

func TestFmtJSON(t *testing.T) {
	ctx, stdout, _ := testContext(t, fmtSource)

	if err := (&JSON{Indent: 2, Source: stdinSource}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var v any
	if err := json.Unmarshal(stdout.Bytes(), &v); err != nil {
		t.Errorf("output is not JSON: %v\n%s", err, stdout.String())
	}
}

func TestFmtYAML(t *testing.T) {
	ctx, stdout, _ := testContext(t, fmtSource)

	if err := (&YAML{Indent: 2, Source: stdinSource}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var v any
	if err := yaml.Unmarshal(stdout.Bytes(), &v); err != nil {
		t.Errorf("output is not YAML: %v\n%s", err, stdout.String())
	}
}

func TestFmtAST(t *testing.T) {
	ctx, stdout, _ := testContext(t, fmtSource)

	if err := (&AST{Source: stdinSource}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if stdout.Len() == 0 {
		t.Error("no syntax tree printed")
	}
}

func TestFmt_SyntaxError(t *testing.T) {
	ctx, stdout, stderr := testContext(t, "x = [1, 2")

	err := (&Native{Indent: 2, Source: stdinSource}).Run(ctx)
	if !errors.Is(err, StatusSyntax) {
		t.Fatalf("Run() error = %v, want StatusSyntax", err)
	}

	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty", stdout.String())
	}

	if !strings.Contains(stderr.String(), "parse error") {
		t.Errorf("stderr = %q, want a parse error", stderr.String())
	}
}

func TestFmt_MissingFile(t *testing.T) {
	ctx, _, _ := testContext(t, "")

	err := (&AST{Source: "/nonexistent/script.cs"}).Run(ctx)
	if !errors.Is(err, ErrReadSource) {
		t.Errorf("Run() error = %v, want ErrReadSource", err)
	}
}

func TestFmtNative_Parses(t *testing.T) {
	ctx, stdout, _ := testContext(t, fmtSource)

	if err := (&Native{Indent: 4, Source: stdinSource}).Run(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := parser.ParseString(stdout.String()); err != nil {
		t.Errorf("formatted output does not parse: %v\n%s", err, stdout.String())
	}
}
