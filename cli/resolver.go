package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/cmds/cli/cmd"
	"github.com/ardnew/cmds/lang"
	"github.com/ardnew/cmds/lang/proc"
	"github.com/ardnew/cmds/log"
)

// loadNative returns a [kong.ConfigurationLoader] for configuration files
// written in the cs language itself.
//
// The file is evaluated as a program whose top-level variables are flag
// values. Commands are refused, and nothing is read from or written to the
// terminal. Flag names with hyphens use underscores, and nested objects
// join their names with an underscore:
//
//	log_level = "debug"
//	shell = "/bin/bash"
//	log = { pretty = false }
//
// This configuration is applied as:
//
//	--log-level=debug --shell=/bin/bash --no-log-pretty
//
// A file that fails to evaluate is logged and ignored. Command-line flags
// override config file values.
func loadNative(ctx context.Context) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		in := lang.New(
			lang.WithLogger(log.Default()),
			lang.WithProcess(proc.Func(refuseCommand)),
			lang.WithStdio(strings.NewReader(""), io.Discard, io.Discard),
			lang.WithEnviron([]string{}),
			lang.WithEcho(false),
		)

		prog, err := in.CompileReader(ctx, r)
		if err != nil {
			log.WarnContext(ctx, "ignoring configuration", slog.Any("error", err))

			return config{}, nil
		}

		root := lang.NewRootScope()

		if _, err := in.Evaluate(ctx, prog, root); err != nil {
			log.WarnContext(ctx, "ignoring configuration", slog.Any("error", err))

			return config{}, nil
		}

		out := config{}

		for name, v := range root.All() {
			if v.Kind() != lang.KindFunction {
				out.add(name, lang.ToGo(v))
			}
		}

		return out, nil
	}
}

func refuseCommand(_ context.Context, req proc.Request) (proc.Result, error) {
	return proc.Result{}, cmd.ErrConfigCommand.With(slog.String("command", req.Text))
}

// loadYAML is a [kong.ConfigurationLoader] for YAML configuration files.
// Keys follow the same rules as [loadNative].
func loadYAML(r io.Reader) (kong.Resolver, error) {
	var values map[string]any

	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	out := config{}

	for name, v := range values {
		out.add(name, v)
	}

	return out, nil
}

// config implements [kong.Resolver] over flattened configuration values.
type config map[string]any

// add stores v under key. Maps are flattened with underscore-joined keys,
// and numbers are stored as strings since Kong parses flag values from
// text.
func (c config) add(key string, v any) {
	switch v := v.(type) {
	case nil:

	case map[string]any:
		for k, e := range v {
			c.add(key+"_"+k, e)
		}

	case []any:
		elems := make([]any, 0, len(v))

		for _, e := range v {
			if s := scalar(e); s != nil {
				elems = append(elems, s)
			}
		}

		c[key] = elems

	default:
		if s := scalar(v); s != nil {
			c[key] = s
		}
	}
}

// scalar returns v as a string or bool, or nil if v is not a scalar.
func scalar(v any) any {
	switch v := v.(type) {
	case string, bool:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int, int64, uint64:
		return fmt.Sprint(v)
	default:
		return nil
	}
}

// Validate implements [kong.Resolver].
func (c config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (c config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	if v, ok := c[flag.Name]; ok {
		return v, nil
	}

	if v, ok := c[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return v, nil
	}

	return nil, nil
}
