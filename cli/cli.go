package cli

import (
	"context"
	"errors"

	"github.com/alecthomas/kong"

	"github.com/ardnew/cmds/cli/cmd"
	"github.com/ardnew/cmds/log"
	"github.com/ardnew/cmds/pkg"
)

// baseConfig is the base name of the configuration files.
const baseConfig = "config"

// CLI is the top-level command-line interface for cs.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Version kong.VersionFlag `help:"Print version and exit." short:"V"`

	Echo     bool     `default:"true"    help:"Stream the output of commands in statement position." negatable:""`
	Shell    string   `default:"/bin/sh" help:"Shell that runs commands."                            type:"path"`
	MaxDepth int      `default:"1024"    help:"Maximum function call depth."`
	Define   []string `help:"Bind NAME to the value of an expr-lang expression over env and args." placeholder:"NAME=EXPR" sep:"none" short:"D"`

	Run  cmd.Run  `cmd:"" default:"withargs" help:"Run a script file (default)."`
	Eval cmd.Eval `cmd:""                    help:"Evaluate program text and print its value."`
	Repl cmd.Repl `cmd:""                    help:"Start an interactive session."`
	Fmt  cmd.Fmt  `cmd:""                    help:"Format or inspect a script."`
	Init cmd.Init `cmd:""                    help:"Initialize configuration file."`
}

// Run executes the cs CLI with the given context and arguments.
// The exit function is called by Kong for --help and --version, and on
// usage errors.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	if err := pkg.MkdirAll(); err != nil {
		return err
	}

	configFilePath := pkg.ConfigPath(baseConfig)

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  pkg.CacheDir(),
		"version":            pkg.Name + " " + pkg.Version,
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Pre-scan for logger flags to ensure early configuration regardless of
	// flag position.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				FlagsLast:           false,
				NoAppSummary:        false,
				NoExpandSubcommands: true,
			}),
		// later files override earlier ones
		kong.Configuration(kong.JSON, configFilePath+cmd.ConfigExt["json"]),
		kong.Configuration(loadYAML, configFilePath+cmd.ConfigExt["yaml"]),
		kong.Configuration(loadNative(ctx), configFilePath+cmd.ConfigExt["native"]),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	// Finalize logger configuration with all parsed values including
	// TimeLayout and Caller which don't use TextUnmarshaler.
	defer cli.Log.start(ctx)()

	// [pprofConfig.start] is no-op unless built with tag pprof and enabled.
	defer cli.Pprof.start(ctx)()

	// Stuff additional context values for use by commands
	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithSettings(ctx, &cmd.Settings{
		Echo:     cli.Echo,
		Shell:    cli.Shell,
		MaxDepth: cli.MaxDepth,
		Define:   cli.Define,
		Logger:   log.Default(),
	})

	return ktx.Run(&cli)
}

// ExitCode returns the process exit status for an error returned by [Run].
func ExitCode(err error) int {
	var status cmd.Status

	switch {
	case err == nil:
		return 0
	case errors.As(err, &status):
		return int(status)
	case errors.Is(err, context.Canceled):
		return int(cmd.StatusInterrupted)
	default:
		return int(cmd.StatusRuntime)
	}
}
