package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/cmds/profile"
)

// defaultConfigIndent is the number of spaces to use for indentation
// when generating a configuration file.
const defaultConfigIndent = 2

// ConfigExt maps each configuration format to its file name suffix.
//
//nolint:gochecknoglobals
var ConfigExt = map[string]string{
	"native": "",
	"json":   ".json",
	"yaml":   ".yaml",
}

// Init generates a configuration file with current flag values.
type Init struct {
	Force  bool   `help:"Overwrite existing configuration file" short:"f"`
	Format string `default:"native" enum:"native,json,yaml" help:"Configuration file format."`
}

// setting is one flag value written to a configuration file.
type setting struct {
	key   string
	value any
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s := settingsFrom(ctx)
	ktx := kongContextFrom(ctx)

	base, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config path undefined")
	}

	confPath := base + ConfigExt[i.Format]

	_, err = os.Stat(confPath)
	if err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			With(slog.Bool("exists", true)).
			Wrap(ErrFileExists)
	}

	data, err := encodeSettings(i.Format, i.settings(ctx))
	if err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	if err := os.WriteFile(confPath, data, 0o600); err != nil {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(err)
	}

	s.Logger.DebugContext(ctx,
		"initialized configuration file",
		slog.String("path", confPath),
		slog.String("format", i.Format),
	)

	return nil
}

// settings collects the value of every configurable flag. Keys use
// underscores so they are valid identifiers in every format.
func (i *Init) settings(ctx context.Context) []setting {
	ktx := kongContextFrom(ctx)

	prefixIgnore := []string{"help", "version", profile.Tag}

	var out []setting

	for _, flag := range ktx.Model.Flags {
		if flag.Hidden || slices.ContainsFunc(prefixIgnore, func(s string) bool {
			return strings.HasPrefix(flag.Name, s)
		}) {
			continue
		}

		v := normalize(ktx.FlagValue(flag))
		if v == nil {
			continue
		}

		out = append(out, setting{strings.ReplaceAll(flag.Name, "-", "_"), v})
	}

	return out
}

// normalize reduces a flag value to string, bool, int64, float64 or []any.
// Empty strings and slices yield nil.
func normalize(v any) any {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.String:
		if rv.Len() == 0 {
			return nil
		}

		return rv.String()

	case reflect.Bool:
		return rv.Bool()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(rv.Uint()) //nolint:gosec

	case reflect.Float32, reflect.Float64:
		return rv.Float()

	case reflect.Slice:
		if rv.Len() == 0 {
			return nil
		}

		elems := make([]any, 0, rv.Len())

		for i := range rv.Len() {
			if e := normalize(rv.Index(i).Interface()); e != nil {
				elems = append(elems, e)
			}
		}

		return elems

	default:
		return nil
	}
}

func encodeSettings(format string, settings []setting) ([]byte, error) {
	switch format {
	case "json":
		m := make(map[string]any, len(settings))
		for _, s := range settings {
			m[s.key] = s.value
		}

		data, err := json.MarshalIndent(m, "", strings.Repeat(" ", defaultConfigIndent))
		if err != nil {
			return nil, err
		}

		return append(data, '\n'), nil

	case "yaml":
		ms := make(yaml.MapSlice, 0, len(settings))
		for _, s := range settings {
			ms = append(ms, yaml.MapItem{Key: s.key, Value: s.value})
		}

		return yaml.MarshalWithOptions(ms, yaml.Indent(defaultConfigIndent))

	default:
		var buf bytes.Buffer

		buf.WriteString("// cs configuration\n")

		for _, s := range settings {
			buf.WriteString(s.key + " = " + literal(s.value) + "\n")
		}

		return buf.Bytes(), nil
	}
}

// literal renders a normalized value as cs source.
func literal(v any) string {
	switch v := v.(type) {
	case string:
		return quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		part := make([]string, len(v))
		for i, e := range v {
			part[i] = literal(e)
		}

		return "[" + strings.Join(part, ", ") + "]"
	default:
		return "none"
	}
}

// quote renders s as a double-quoted cs string whose content is never
// interpolated.
func quote(s string) string {
	var b strings.Builder

	b.WriteByte('"')

	for _, r := range s {
		switch r {
		case '"', '\\', '{', '$':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x10000 && !unicode.IsPrint(r) {
				b.WriteString(`\u` + strconv.FormatInt(int64(r)+0x10000, 16)[1:])
			} else {
				b.WriteRune(r)
			}
		}
	}

	b.WriteByte('"')

	return b.String()
}
