package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version is the semantic version of the cs command embedded at build time.
//
//nolint:gochecknoglobals
var Version = strings.TrimSpace(version)

const (
	// Name is the command identifier. It appears in help text and in the
	// default configuration and cache paths.
	Name = "cs"
	// Description is a short summary of the command used in help output.
	Description = "Shell scripting language with first-class commands"
)

// AuthorInfo represents an individual author's name and email address.
type AuthorInfo struct {
	Name  string
	Email string
}

// Author lists the primary author(s) of the project for display in metadata.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}
