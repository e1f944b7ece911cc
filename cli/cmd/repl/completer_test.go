package repl

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/cmds/lang"
)

func TestWordBounds(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		cursor    int
		wantWord  string
		wantStart int
		wantEnd   int
	}{
		{"simple", "foo", 3, "foo", 0, 3},
		{"dot_separated", "bar.baz", 7, "baz", 4, 7},
		{"after_plus", "a + fo", 6, "fo", 4, 6},
		{"after_paren", "double(fo", 9, "fo", 7, 9},
		{"after_comma", "add(a, fo", 9, "fo", 7, 9},
		{"after_comparison", "a > fo", 6, "fo", 4, 6},
		{"empty_at_boundary", "a + ", 4, "", 4, 4},
		{"mid_word", "foobar", 3, "foobar", 0, 6},
		{"at_start", "foo", 0, "foo", 0, 3},
		{"between_operators", "a+b", 2, "b", 2, 3},
		{"underscore", "read_li", 7, "read_li", 0, 7},
		{"hyphen_splits", "a-bc", 4, "bc", 2, 4},
		{"in_interpolation", `"{{ na`, 6, "na", 4, 6},
		{"empty_after_dot", "config.", 7, "", 7, 7},
		{"cursor_past_end", "ab", 10, "ab", 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			word, start, end := wordBounds(tt.input, tt.cursor)
			if word != tt.wantWord || start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("wordBounds(%q, %d) = (%q, %d, %d), want (%q, %d, %d)",
					tt.input, tt.cursor, word, start, end,
					tt.wantWord, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestParentPath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wordStart int
		want      string
	}{
		{"top_level", "fo", 0, ""},
		{"simple_chain", "bar.baz.", 8, "bar.baz"},
		{"after_operator", "foo + bar.baz.", 14, "bar.baz"},
		{"after_paren", "(bar.baz.", 9, "bar.baz"},
		{"no_chain", "a + ", 4, ""},
		{"deep_chain", "a.b.c.", 6, "a.b.c"},
		{"after_equals", "x = a.b.", 8, "a.b"},
		{"partial_word", "math.mi", 5, "math"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parentPath(tt.input, tt.wordStart); got != tt.want {
				t.Errorf("parentPath(%q, %d) = %q, want %q",
					tt.input, tt.wordStart, got, tt.want)
			}
		})
	}
}

func newTestRoot() *lang.Scope {
	root := lang.NewRootScope()

	server := lang.NewScope(nil)
	server.Define("host", lang.String("localhost"))
	server.Define("port", lang.Number(8080))

	root.Define("server", server)
	root.Define("count", lang.Number(3))
	root.Define("last", &lang.CommandResult{Stdout: "ok\n"})
	root.Define("maybe", lang.Some(lang.Number(1)))

	return root
}

func TestChildCandidates(t *testing.T) {
	root := newTestRoot()

	tests := []struct {
		name   string
		parent string
		want   []string
	}{
		{"object", "server", []string{"host", "port"}},
		{"command_result", "last", []string{"stdout", "stderr", "code", "ok"}},
		{"option", "maybe", []string{"value"}},
		{"number", "count", nil},
		{"undefined", "nope", nil},
		{"through_number", "count.x", nil},
		{"builtin_namespace", "math", []string{"floor", "ceil", "round", "abs", "sqrt", "min", "max"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, childCandidates(root, tt.parent)); diff != "" {
				t.Errorf("childCandidates(%q) mismatch (-want +got):\n%s", tt.parent, diff)
			}
		})
	}
}

func TestChildCandidates_TopLevel(t *testing.T) {
	got := childCandidates(newTestRoot(), "")

	for _, want := range []string{"server", "count", "print", "math", "fn", "while"} {
		if !slices.Contains(got, want) {
			t.Errorf("top-level candidates missing %q", want)
		}
	}

	// session bindings come before builtins
	if i, j := slices.Index(got, "server"), slices.Index(got, "print"); i > j {
		t.Errorf("server at %d, print at %d: want session names first", i, j)
	}
}

func TestVisibleNames_Shadowing(t *testing.T) {
	root := lang.NewRootScope()
	root.Define("print", lang.Number(1))

	names := visibleNames(root)

	n := 0

	for _, name := range names {
		if name == "print" {
			n++
		}
	}

	if n != 1 {
		t.Errorf("print appears %d times, want 1", n)
	}
}

func TestResolve(t *testing.T) {
	root := newTestRoot()

	v, ok := resolve(root, "server.port")
	if !ok {
		t.Fatal("server.port not resolved")
	}

	if diff := cmp.Diff(lang.Value(lang.Number(8080)), v); diff != "" {
		t.Errorf("server.port mismatch (-want +got):\n%s", diff)
	}

	if _, ok := resolve(root, "server.nope"); ok {
		t.Error("server.nope resolved, want missing")
	}

	if v, ok := resolve(root, "math.min"); !ok || v.Kind() != lang.KindFunction {
		t.Errorf("math.min = %v, %v; want a function", v, ok)
	}
}

func TestComputeMatches(t *testing.T) {
	tests := []struct {
		name  string
		mode  inputMode
		input string
		want  string // first match
		none  bool
	}{
		{"member", modeEval, "server.ho", "host", false},
		{"after_dot", modeEval, "server.", "host", false},
		{"top_level", modeEval, "coun", "count", false},
		{"empty", modeEval, "", "", true},
		{"after_operator_empty", modeEval, "count + ", "", true},
		{"ctrl", modeCtrl, "he", "help", false},
		{"ctrl_empty", modeCtrl, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestModel(t)
			if tt.mode == modeCtrl {
				m = m.switchToMode(modeCtrl)
			}

			m.input.SetValue(tt.input)
			m.input.SetCursor(len(tt.input))

			matches, _, _, _ := m.computeMatches()

			if tt.none {
				if len(matches) != 0 {
					t.Errorf("got %d matches, want none", len(matches))
				}

				return
			}

			if len(matches) == 0 {
				t.Fatal("no matches")
			}

			if matches[0].Str != tt.want {
				t.Errorf("first match = %q, want %q", matches[0].Str, tt.want)
			}
		})
	}
}

func TestIsFunction(t *testing.T) {
	m := newTestModel(t)

	if !m.isFunction("", "print") {
		t.Error("print is not a function")
	}

	if !m.isFunction("math", "max") {
		t.Error("math.max is not a function")
	}

	if m.isFunction("server", "host") {
		t.Error("server.host is a function")
	}
}
