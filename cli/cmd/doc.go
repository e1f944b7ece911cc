// Package cmd implements the cs subcommands: run, eval, repl, fmt and init.
//
// Commands receive their shared [Settings] through the context and report
// script failures as a [Status] after writing diagnostics to stderr.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the base
	// path of the configuration files.
	ConfigIdentifier = "config"
)
