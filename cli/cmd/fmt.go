package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ardnew/cmds/lang"
	"github.com/ardnew/cmds/lang/lexer"
	"github.com/ardnew/cmds/lang/parser"
)

// Fmt parses a script and prints it in the chosen representation.
type Fmt struct {
	Native Native `cmd:"" default:"withargs" help:"Reformat in canonical cs syntax (default)."`
	Tokens Tokens `cmd:""                    help:"Print the token stream."`
	AST    AST    `cmd:""                    help:"Print the syntax tree."`
	JSON   JSON   `cmd:""                    help:"Print the syntax tree as JSON."`
	YAML   YAML   `cmd:""                    help:"Print the syntax tree as YAML."`
}

// Native formats input as canonical cs syntax.
type Native struct {
	Indent int `default:"2" help:"Indent width for formatted output" short:"i"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for default stdin." name:"source"`
}

// Run executes the native command.
func (f *Native) Run(ctx context.Context) error {
	return format(ctx, f.Source, "native", func(s *Settings, prog *parser.Program) error {
		return prog.Format(ctx, s.Stdout, f.Indent)
	})
}

// Tokens prints one token per line.
type Tokens struct {
	Source string `arg:"" default:"-" help:"Source input file or '-' for default stdin." name:"source"`
}

// Run executes the tokens command.
func (t *Tokens) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s := settingsFrom(ctx)

	_, src, err := readSource(t.Source, s.Stdin)
	if err != nil {
		return err
	}

	toks, err := lexer.Tokenize(src, lexer.WithLogger(s.Logger))
	if err != nil {
		fmt.Fprint(s.Stderr, lang.FormatError(err, src))

		return StatusSyntax
	}

	for _, tok := range toks {
		if _, err := fmt.Fprintf(s.Stdout, "%s\t%s\n", tok.Pos, tok); err != nil {
			return ErrWriteOutput.With(slog.String("format", "tokens")).Wrap(err)
		}
	}

	return nil
}

// AST prints the indented syntax tree.
type AST struct {
	Source string `arg:"" default:"-" help:"Source input file or '-' for default stdin." name:"source"`
}

// Run executes the ast command.
func (a *AST) Run(ctx context.Context) error {
	return format(ctx, a.Source, "ast", func(s *Settings, prog *parser.Program) error {
		return prog.Print(s.Stdout)
	})
}

// JSON prints the syntax tree as JSON.
type JSON struct {
	Indent int `default:"2" help:"Indent width for JSON output" short:"i"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for default stdin." name:"source"`
}

// Run executes the json command.
func (j *JSON) Run(ctx context.Context) error {
	return format(ctx, j.Source, "json", func(s *Settings, prog *parser.Program) error {
		return prog.FormatJSON(ctx, s.Stdout, j.Indent)
	})
}

// YAML prints the syntax tree as YAML.
type YAML struct {
	Indent int `default:"2" help:"Indent width for YAML output" short:"i"`

	Source string `arg:"" default:"-" help:"Source input file or '-' for default stdin." name:"source"`
}

// Run executes the yaml command.
func (y *YAML) Run(ctx context.Context) error {
	return format(ctx, y.Source, "yaml", func(s *Settings, prog *parser.Program) error {
		return prog.FormatYAML(ctx, s.Stdout, y.Indent)
	})
}

// format parses source and hands the program to write. Syntax errors are
// reported with a source excerpt.
func format(
	ctx context.Context,
	source, name string,
	write func(*Settings, *parser.Program) error,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	s := settingsFrom(ctx)

	_, src, err := readSource(source, s.Stdin)
	if err != nil {
		return err
	}

	prog, err := parser.ParseString(src, parser.WithLogger(s.Logger))
	if err != nil {
		fmt.Fprint(s.Stderr, lang.FormatError(err, src))

		return StatusSyntax
	}

	s.Logger.TraceContext(ctx, "format",
		slog.String("format", name),
		slog.Int("statement_count", len(prog.Stmts)),
	)

	if err := write(s, prog); err != nil {
		return ErrWriteOutput.With(slog.String("format", name)).Wrap(err)
	}

	return nil
}
