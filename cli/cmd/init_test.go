package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/cmds/lang/parser"
)

// initCLI mirrors the shape of the global flags written by init.
type initCLI struct {
	Echo     bool     `default:"true"    negatable:""`
	Shell    string   `default:"/bin/sh"`
	MaxDepth int      `default:"1024"`
	Define   []string `short:"D"`
	Secret   string   `default:"x"       hidden:""`
	Pprof    string   `default:"cpu"`
}

func initContext(t *testing.T, base string) context.Context {
	t.Helper()

	var cli initCLI

	k, err := kong.New(&cli, kong.Vars{ConfigIdentifier: base})
	if err != nil {
		t.Fatal(err)
	}

	ktx, err := k.Parse(nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, _, _ := testContext(t, "")

	return WithContext(ctx, ktx)
}

func TestInitRun(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		force   bool
		exists  bool
		wantErr error
	}{
		{name: "native", format: "native"},
		{name: "json", format: "json"},
		{name: "yaml", format: "yaml"},
		{name: "overwrite_with_force", format: "native", force: true, exists: true},
		{name: "fail_without_force", format: "yaml", exists: true, wantErr: ErrFileExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "config")
			path := base + ConfigExt[tt.format]

			if tt.exists {
				if err := os.WriteFile(path, []byte("existing"), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			err := (&Init{Force: tt.force, Format: tt.format}).Run(initContext(t, base))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrWriteConfig) {
					t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}

			checkConfig(t, tt.format, data)
		})
	}
}

func checkConfig(t *testing.T, format string, data []byte) {
	t.Helper()

	want := map[string]any{
		"echo":      true,
		"shell":     "/bin/sh",
		"max_depth": float64(1024),
	}

	switch format {
	case "json":
		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, data)
		}

		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("JSON mismatch (-want +got):\n%s", diff)
		}

	case "yaml":
		var got map[string]any
		if err := yaml.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid YAML: %v\n%s", err, data)
		}

		for key := range want {
			if _, ok := got[key]; !ok {
				t.Errorf("YAML missing %q:\n%s", key, data)
			}
		}

		if len(got) != len(want) {
			t.Errorf("YAML has %d keys, want %d:\n%s", len(got), len(want), data)
		}

	default:
		src := string(data)

		for _, line := range []string{`echo = true`, `shell = "/bin/sh"`, `max_depth = 1024`} {
			if !strings.Contains(src, line+"\n") {
				t.Errorf("native config missing %q:\n%s", line, src)
			}
		}

		if strings.Contains(src, "secret") || strings.Contains(src, "pprof") || strings.Contains(src, "define") {
			t.Errorf("native config includes skipped flags:\n%s", src)
		}

		if _, err := parser.ParseString(src); err != nil {
			t.Errorf("native config does not parse: %v\n%s", err, src)
		}
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", `"plain"`},
		{`say "hi"`, `"say \"hi\""`},
		{`C:\dir`, `"C:\\dir"`},
		{"{{ x }}", `"\{\{ x }}"`},
		{"$(cmd)", `"\$(cmd)"`},
		{"a\nb\tc\r", `"a\nb\tc\r"`},
		{"\x00", `"\u0000"`},
		{"héllo", `"héllo"`},
	}

	for _, tt := range tests {
		if got := quote(tt.in); got != tt.want {
			t.Errorf("quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"s", `"s"`},
		{true, "true"},
		{int64(-3), "-3"},
		{1.5, "1.5"},
		{[]any{"a", int64(1)}, `["a", 1]`},
		{nil, "none"},
	}

	for _, tt := range tests {
		if got := literal(tt.in); got != tt.want {
			t.Errorf("literal(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{"", nil},
		{"x", "x"},
		{false, false},
		{42, int64(42)},
		{uint8(7), int64(7)},
		{float32(0.5), float64(0.5)},
		{[]string{}, nil},
		{[]string{"a", ""}, []any{"a"}},
		{struct{}{}, nil},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, normalize(tt.in)); diff != "" {
			t.Errorf("normalize(%#v) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
