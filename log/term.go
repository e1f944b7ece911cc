package log

import "github.com/mattn/go-isatty"

// fder is implemented by *os.File and anything else backed by a file
// descriptor.
type fder interface {
	Fd() uintptr
}

// IsTerminal reports whether stream, a reader or writer, is connected to a
// terminal.
func IsTerminal(stream any) bool {
	f, ok := stream.(fder)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
