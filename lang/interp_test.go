package lang

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ardnew/cmds/lang/proc"
)

// stubService emulates a handful of commands without a shell:
//
//	echo TEXT         prints TEXT and a newline
//	fail CODE         exits with CODE
//	env NAME          prints the value of NAME in the request environment
//	delay MS TEXT     sleeps MS milliseconds, then prints TEXT
//	block             waits until cancelled
func stubService() proc.Func {
	return func(ctx context.Context, req proc.Request) (proc.Result, error) {
		name, arg, _ := strings.Cut(req.Text, " ")

		var res proc.Result

		switch name {
		case "echo":
			res.Stdout = arg + "\n"

		case "fail":
			res.Code, _ = strconv.Atoi(arg)
			res.Stderr = "failed\n"

		case "env":
			for _, kv := range req.Env {
				if k, v, ok := strings.Cut(kv, "="); ok && k == arg {
					res.Stdout = v
				}
			}

		case "delay":
			ms, text, _ := strings.Cut(arg, " ")
			n, _ := strconv.Atoi(ms)

			select {
			case <-time.After(time.Duration(n) * time.Millisecond):
			case <-ctx.Done():
				return proc.Result{}, ctx.Err()
			}

			res.Stdout = text + "\n"

		case "block":
			<-ctx.Done()

			return proc.Result{}, ctx.Err()

		default:
			res.Code = 127
			res.Stderr = name + ": not found\n"
		}

		if req.Stdout != nil {
			_, _ = io.WriteString(req.Stdout, res.Stdout)
		}

		return res, nil
	}
}

func newTestInterpreter(opts ...InterpreterOption) (*Interpreter, *bytes.Buffer) {
	var out bytes.Buffer

	base := []InterpreterOption{
		WithProcess(stubService()),
		WithEnviron([]string{"HOME=/home/test", "PATH=/usr/bin:/bin"}),
		WithStdio(nil, &out, io.Discard),
	}

	return New(append(base, opts...)...), &out
}

func run(t *testing.T, src string, opts ...InterpreterOption) (Value, error) {
	t.Helper()

	in, _ := newTestInterpreter(opts...)

	return in.Run(t.Context(), src, nil)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"assignment", "x = 42\nx", "42"},
		{"precedence", "1 + 2 * 3 ^ 2", "19"},
		{"right associative power", "2 ^ 3 ^ 2", "512"},
		{"negation", "-(2 + 3)", "-5"},
		{"modulo", "7 % 3", "1"},
		{"division", "7 / 2", "3.5"},
		{"exponent literal", "[1.5e3, -2e-2, 1.5e3 == unwrap(parse_number(\"1.5e3\"))]", "[1500, -0.02, true]"},
		{"string concatenation", `"a" + 1 + true`, `"a1true"`},
		{"string comparison", `"abc" < "abd"`, "true"},
		{"short circuit and", "false && undefined_name", "false"},
		{"short circuit or", `0 || "x"`, "true"},
		{"not", `!""`, "true"},
		{"template", `"{{ 1 + 2 }}"`, `"3"`},
		{"template shortest decimal", `"{{ 0.1 + 0.2 }}"`, `"0.30000000000000004"`},
		{"triple quoted", "s = \"\"\"\n  a\n  b\n  \"\"\"\ns", `"a\nb"`},
		{"object literal", "p = { a = 1\n b = 2 }\np", "{ a = 1, b = 2 }"},
		{"value block", "{ a = 1\n a }", "1"},
		{"empty object", "{}", "{}"},
		{"member", "p = { a = 1 }\np.a", "1"},
		{"member assignment", "p = { a = 1 }\np.b = 2\np.a += 10\np", "{ a = 11, b = 2 }"},
		{"nested object", "p = { q = { r = 3 } }\np.q.r", "3"},
		{"object block does not leak", "p = { a = 1 }\na = 5\np.a", "1"},
		{"function declaration", "fn add(a, b) { return a + b }\nadd(2, 3)", "5"},
		{"trailing expression", "sq = fn(x) { x * x }\nsq(4)", "16"},
		{"object-shaped body", "fn mk(x) { y = x * 2 }\nmk(3)", "{ x = 3, y = 6 }"},
		{"object-shaped body shadows global", "y = 100\nfn mk(x) { y = x * 2 }\n[mk(3), y]", "[{ x = 3, y = 6 }, 100]"},
		{
			"closure counter",
			"fn counter() {\n  n = 0\n  fn inc() {\n    n = n + 1\n    return n\n  }\n  return inc\n}\n" +
				"c = counter()\na = c()\nb = c()\n[a, b]",
			"[1, 2]",
		},
		{
			"closure observes outer mutation",
			"x = 1\nget = fn() { x }\nx = 2\nget()",
			"2",
		},
		{
			"recursion",
			"fn fact(n) {\n  if n <= 1 { return 1 }\n  return n * fact(n - 1)\n}\nfact(5)",
			"120",
		},
		{
			"else if chain",
			"x = 5\nif x < 3 { \"small\" } else if x < 10 { \"medium\" } else { \"large\" }",
			`"medium"`,
		},
		{"if without else", "if false { 1 }", "none"},
		{"while", "i = 0\ns = 0\nwhile i < 5 {\n  s += i\n  i += 1\n}\ns", "10"},
		{
			"for with break and continue",
			"total = 0\nfor i in 0 .. 10 {\n  if i == 2 { continue }\n  if i == 5 { break }\n  total += i\n}\ntotal",
			"8",
		},
		{"for over string", "out = \"\"\nfor c in \"abc\" { out = c + out }\nout", `"cba"`},
		{"for over object", "o = { a = 1\n b = 2 }\nks = []\nfor k in o { push(ks, k) }\nks", `["a", "b"]`},
		{"range", "0 .. 3", "[0, 1, 2]"},
		{"empty range", "3 .. 1", "[]"},
		{"index assignment", "a = [1, 2, 3]\na[1] = 20\na[3] = 4\na", "[1, 20, 3, 4]"},
		{"string index", `"héllo"[1]`, `"é"`},
		{"compound assignment", "x = 10\nx -= 3\nx *= 2\nx %= 5\nx ^= 2\nx", "16"},
		{"array concatenation", "[1] + [2, 3]", "[1, 2, 3]"},
		{"array equality", "[1, 2] == [1, 2]", "true"},
		{"self-referencing arrays", "a = []\npush(a, a)\nb = []\npush(b, b)\n[a == b, a == [a], a == [1]]", "[true, true, false]"},
		{"symbol", "typeof(1) == #Number", "true"},
		{"shadow builtin", "length = 3\nlength", "3"},
		{"builtin intact after shadow", "{ length = 3 }\nlength([1, 2])", "2"},
		{"none call", "none()", "none"},
		{"top-level return", "return 7\n8", "7"},
		{"empty program", "", "none"},
		{"sync command", "r = $ echo hi\nr", `{ stdout = "hi\n", stderr = "", code = 0 }`},
		{
			"command interpolation",
			"name = \"x\"\nr = $ echo {{ name }}-{{ 1 + 1 }}\nr.stdout",
			`"x-2\n"`,
		},
		{"command code", "r = $ fail 3\n[r.code, r.ok]", "[3, false]"},
		{
			"async awaited in reverse order",
			"a = % delay 50 one\nb = % echo two\nrb = b!\nra = a!\n[ra.stdout, rb.stdout]",
			`["one\n", "two\n"]`,
		},
		{"await caches result", "h = % echo x\nfirst = h!\n[h.done, h! == first]", "[true, true]"},
		{"env set reaches commands", "env.set(\"GREETING\", \"hello\")\nr = $ env GREETING\nr.stdout", `"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.src)
			if err != nil {
				t.Fatalf("evaluate error: %v", err)
			}

			if diff := cmp.Diff(tt.want, Repr(got)); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
		msg  string
	}{
		{name: "undefined", src: "nope", want: ErrUndefined, msg: "nope"},
		{name: "undefined in template", src: `"{{ nope }}"`, want: ErrUndefined},
		{name: "invalid operands", src: "1 + true", want: ErrType},
		{name: "division by zero", src: "1 / 0", want: ErrDivision},
		{name: "modulo by zero", src: "1 % 0", want: ErrDivision},
		{name: "closure arity", src: "fn f(a) { a }\nf(1, 2)", want: ErrType},
		{name: "builtin arity", src: "length()", want: ErrType},
		{name: "call non-function", src: "x = 1\nx()", want: ErrType},
		{name: "index out of range", src: "[1][5]", want: ErrIndex},
		{name: "nth out of range", src: "nth([1, 2], 2)", want: ErrIndex},
		{name: "assert", src: `assert(false, "boom")`, want: ErrFatal, msg: "boom"},
		{name: "panic", src: `panic("bad")`, want: ErrFatal, msg: "bad"},
		{name: "unwrap error", src: `unwrap(parse_number("x"))`, want: ErrFatal},
		{name: "unwrap none", src: `unwrap(none)`, want: ErrFatal},
		{name: "interpolate array", src: `"{{ [1] }}"`, want: ErrType},
		{name: "command interpolates object", src: "o = {}\n$ echo {{ o }}", want: ErrType},
		{name: "modify builtin object", src: "math.floor = 1", want: ErrType},
		{name: "missing field", src: "p = { a = 1 }\np.b", want: ErrUndefined},
		{name: "await non-handle", src: "x = 1\nx!", want: ErrType},
		{name: "iterate number", src: "for i in 3 { i }", want: ErrType},
		{name: "fractional range", src: "0 .. 1.5", want: ErrType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.src)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}

			var rerr *Error
			if !errors.As(err, &rerr) {
				t.Fatalf("error %T is not *Error", err)
			}

			if !rerr.Position().IsValid() {
				t.Errorf("error %q has no position", err)
			}

			if tt.msg != "" && rerr.Message() != tt.msg {
				t.Errorf("message = %q, want %q", rerr.Message(), tt.msg)
			}
		})
	}
}

func TestMaxDepth(t *testing.T) {
	_, err := run(t, "fn f(n) { return f(n + 1) }\nf(0)", WithMaxDepth(50))
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Fatalf("error = %v, want %v", err, ErrMaxDepthExceeded)
	}
}

func TestExit(t *testing.T) {
	_, err := run(t, "exit(3)\n1")

	var exit *ExitError
	if !errors.As(err, &exit) {
		t.Fatalf("error = %v, want *ExitError", err)
	}

	if exit.Code != 3 {
		t.Errorf("code = %d, want 3", exit.Code)
	}
}

func TestErrorPosition(t *testing.T) {
	src := "x = 1\ny = x + nope"

	_, err := run(t, src)

	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("error = %v, want *Error", err)
	}

	if got := rerr.Position(); got.Line != 2 || got.Column != 9 {
		t.Errorf("position = %s, want 2:9", got)
	}

	want := "runtime error at 2:9: undefined variable: nope\n" +
		"  2 | y = x + nope\n" +
		strings.Repeat(" ", 14) + "^\n"

	if diff := cmp.Diff(want, FormatError(err, src)); diff != "" {
		t.Errorf("FormatError mismatch (-want +got):\n%s", diff)
	}
}

func TestSyntaxErrorsAbortBeforeEvaluation(t *testing.T) {
	in, out := newTestInterpreter()

	_, err := in.Run(t.Context(), "print(\"ran\")\nx = (1 +", nil)
	if !IsSyntax(err) {
		t.Fatalf("error = %v, want syntax error", err)
	}

	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing", out.String())
	}
}

func TestStatementCommandEcho(t *testing.T) {
	in, out := newTestInterpreter(WithEcho(true))

	got, err := in.Run(t.Context(), "$ echo streamed\nr = $ echo captured\nr.stdout", nil)
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	if diff := cmp.Diff("streamed\n", out.String()); diff != "" {
		t.Errorf("echoed output mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(`"captured\n"`, Repr(got)); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	in, _ := newTestInterpreter()

	_, err := in.Run(ctx, "r = $ block", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("command: error = %v, want deadline exceeded", err)
	}

	ctx, cancel = context.WithTimeout(t.Context(), 50*time.Millisecond)
	defer cancel()

	_, err = in.Run(ctx, "while true { x = 1 }", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("loop: error = %v, want deadline exceeded", err)
	}
}

func TestPersistentRoot(t *testing.T) {
	in, _ := newTestInterpreter()
	root := NewScriptScope("main.cmds", []string{"a", "b"})

	if _, err := in.Run(t.Context(), "n = length(args)", root); err != nil {
		t.Fatalf("first evaluation: %v", err)
	}

	got, err := in.Run(t.Context(), "script + \":\" + n", root)
	if err != nil {
		t.Fatalf("second evaluation: %v", err)
	}

	if diff := cmp.Diff(`"main.cmds:2"`, Repr(got)); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestCall(t *testing.T) {
	in, _ := newTestInterpreter()
	root := NewRootScope()

	if _, err := in.Run(t.Context(), "fn twice(x) { x * 2 }", root); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	fn, _ := root.Get("twice")

	got, err := in.Call(t.Context(), fn, Number(21))
	if err != nil {
		t.Fatalf("call: %v", err)
	}

	if !Equal(got, Number(42)) {
		t.Errorf("twice(21) = %s, want 42", Repr(got))
	}
}

func TestCompileCache(t *testing.T) {
	ClearCache()

	in, _ := newTestInterpreter()

	a, err := in.Compile(t.Context(), "x = 1")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	b, err := in.CompileReader(t.Context(), strings.NewReader("x = 1"))
	if err != nil {
		t.Fatalf("compile reader: %v", err)
	}

	if a != b {
		t.Error("identical source compiled twice")
	}

	if _, err := in.Compile(t.Context(), "x = ("); !IsSyntax(err) {
		t.Errorf("error = %v, want syntax error", err)
	}
}

func TestCompileCache_Bounded(t *testing.T) {
	ClearCache()
	t.Cleanup(ClearCache)

	in, _ := newTestInterpreter()

	first, err := in.Compile(t.Context(), "n = 0")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	for i := 1; i <= CacheSize+10; i++ {
		if _, err := in.Compile(t.Context(), "n = "+strconv.Itoa(i)); err != nil {
			t.Fatalf("compile %d: %v", i, err)
		}
	}

	if got := CacheLen(); got != CacheSize {
		t.Errorf("CacheLen() = %d, want %d", got, CacheSize)
	}

	again, err := in.Compile(t.Context(), "n = 0")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	if again == first {
		t.Error("least recently used program was not evicted")
	}
}
