package lang

// This file defines the host-facing built-ins: the command environment
// (env), filesystem predicates (file), path manipulation (path), and a
// read-only description of the host system (sys).

import (
	"bufio"
	"context"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ardnew/mung"
)

func envBuiltins() []*Builtin {
	return []*Builtin{
		{Name: "get", MinArgs: 1, MaxArgs: 1, Fn: envGet},
		{Name: "set", MinArgs: 2, MaxArgs: 2, Fn: envSet},
		{Name: "prefix", MinArgs: 1, MaxArgs: -1, Fn: envPrefix},
	}
}

func envGet(_ context.Context, in *Interpreter, args []Value) (Value, error) {
	key, err := argString("env.get", args, 0)
	if err != nil {
		return nil, err
	}

	v, ok := in.Getenv(key)
	if !ok {
		return None, nil
	}

	return Some(String(v)), nil
}

func envSet(_ context.Context, in *Interpreter, args []Value) (Value, error) {
	key, err := argString("env.set", args, 0)
	if err != nil {
		return nil, err
	}

	if key == "" || strings.ContainsAny(key, "=\x00") {
		return nil, ErrType.Detail("invalid environment variable name " + Repr(args[0]))
	}

	val, err := ToString(args[1])
	if err != nil {
		return nil, err
	}

	in.Setenv(key, val)

	return String(val), nil
}

// envPrefix prepends items to the PATH-like variable named by its first
// argument, dropping duplicates, and returns the new value.
func envPrefix(_ context.Context, in *Interpreter, args []Value) (Value, error) {
	key, err := argString("env.prefix", args, 0)
	if err != nil {
		return nil, err
	}

	items := make([]string, 0, len(args)-1)

	for i := 1; i < len(args); i++ {
		item, err := argString("env.prefix", args, i)
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	cur, _ := in.Getenv(key)
	val := prefixList(cur, items...)
	in.Setenv(key, val)

	return String(val), nil
}

func prefixList(list string, prefix ...string) string {
	return mung.Make(
		mung.WithSubjectItems(list),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
	).String()
}

// ---------------------------------------------------------------------------
// Filesystem predicates
// ---------------------------------------------------------------------------

func fileBuiltins() []*Builtin {
	return []*Builtin{
		statPredicate("exists", os.Stat, func(os.FileInfo) bool { return true }),
		statPredicate("isDir", os.Stat, os.FileInfo.IsDir),
		statPredicate("isRegular", os.Stat, func(fi os.FileInfo) bool {
			return fi.Mode().IsRegular()
		}),
		statPredicate("isSymlink", os.Lstat, func(fi os.FileInfo) bool {
			return fi.Mode()&os.ModeSymlink != 0
		}),
	}
}

func statPredicate(
	name string,
	stat func(string) (os.FileInfo, error),
	pred func(os.FileInfo) bool,
) *Builtin {
	return &Builtin{
		Name: name, MinArgs: 1, MaxArgs: 1,
		Fn: func(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
			p, err := argString("file."+name, args, 0)
			if err != nil {
				return nil, err
			}

			info, err := stat(p)
			if err != nil {
				return Bool(false), nil
			}

			return Bool(pred(info)), nil
		},
	}
}

// ---------------------------------------------------------------------------
// Path manipulation
// ---------------------------------------------------------------------------

func pathBuiltins() []*Builtin {
	return []*Builtin{
		{Name: "abs", MinArgs: 1, MaxArgs: 1, Fn: stringsFunc("path.abs", func(s []string) string {
			return pathAbs(s[0])
		})},
		{Name: "cat", MinArgs: 1, MaxArgs: -1, Fn: stringsFunc("path.cat", func(s []string) string {
			return filepath.Join(s...)
		})},
		{Name: "rel", MinArgs: 2, MaxArgs: 2, Fn: stringsFunc("path.rel", func(s []string) string {
			return pathRel(s[0], s[1])
		})},
		{Name: "base", MinArgs: 1, MaxArgs: 1, Fn: stringsFunc("path.base", func(s []string) string {
			return filepath.Base(s[0])
		})},
		{Name: "dir", MinArgs: 1, MaxArgs: 1, Fn: stringsFunc("path.dir", func(s []string) string {
			return filepath.Dir(s[0])
		})},
	}
}

func stringsFunc(name string, f func([]string) string) BuiltinFunc {
	return func(_ context.Context, _ *Interpreter, args []Value) (Value, error) {
		s := make([]string, len(args))

		for i := range args {
			var err error
			if s[i], err = argString(name, args, i); err != nil {
				return nil, err
			}
		}

		return String(f(s)), nil
	}
}

func pathAbs(path string) string {
	p, err := filepath.Abs(path)
	if err != nil {
		return path
	}

	return p
}

func pathRel(from, to string) string {
	p, err := filepath.Rel(pathAbs(from), pathAbs(to))
	if err != nil {
		return filepath.Join(from, to)
	}

	return p
}

func builtinCwd(context.Context, *Interpreter, []Value) (Value, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return String(pathAbs(".")), nil
	}

	return String(cwd), nil
}

// ---------------------------------------------------------------------------
// Host description
// ---------------------------------------------------------------------------

// sysObject describes the host: os and arch use Go naming, target uses
// the GNU triple-style architecture name.
func sysObject() *Scope {
	goos, goarch := platform()

	sc := NewScope(nil)
	sc.Define("os", String(goos))
	sc.Define("arch", String(goarch))
	sc.Define("target", String(targetArch(goos, goarch)+"-"+goos))
	sc.Define("hostname", String(hostname()))
	sc.Define("user", String(username()))
	sc.Define("shell", String(loginShell()))

	return sc
}

// platform returns the host OS and architecture, honoring the Go
// toolchain's environment overrides.
func platform() (goos, goarch string) {
	var ok bool

	if goos, ok = os.LookupEnv("GOHOSTOS"); !ok {
		if goos, ok = os.LookupEnv("GOOS"); !ok {
			goos = runtime.GOOS
		}
	}

	if goarch, ok = os.LookupEnv("GOHOSTARCH"); !ok {
		if goarch, ok = os.LookupEnv("GOARCH"); !ok {
			goarch = runtime.GOARCH
		}
	}

	return goos, goarch
}

func targetArch(goos, goarch string) string {
	switch goarch {
	case "386":
		return "i386"
	case "amd64":
		return "x86_64"
	case "arm":
		if arm, ok := os.LookupEnv("GOARM"); ok {
			arm, _, _ = strings.Cut(arm, ",")
			switch arm = strings.TrimSpace(arm); arm {
			case "5", "6", "7":
				return "armv" + arm
			}
		}
	case "arm64":
		if goos != "darwin" {
			return "aarch64"
		}
	case "mipsle":
		return "mipsel"
	}

	return goarch
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return ""
	}

	return name
}

func username() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}

	return u.Username
}

func loginShell() string {
	if shell, ok := os.LookupEnv("SHELL"); ok {
		return shell
	}

	name := username()
	if name == "" {
		return ""
	}

	f, err := os.Open("/etc/passwd")
	if err != nil {
		return ""
	}

	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		e := strings.Split(s.Text(), ":")
		if len(e) > 6 && e[0] == name {
			return e[6]
		}
	}

	return ""
}
