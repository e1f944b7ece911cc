package lang

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// LineReader supplies lines to read_line. At end of input it returns
// io.EOF.
type LineReader interface {
	ReadLine(ctx context.Context) (string, error)
}

// LineReaderFunc adapts a function to [LineReader].
type LineReaderFunc func(ctx context.Context) (string, error)

// ReadLine calls f.
func (f LineReaderFunc) ReadLine(ctx context.Context) (string, error) { return f(ctx) }

type reader struct {
	mu sync.Mutex
	br *bufio.Reader
}

// NewLineReader returns a LineReader over r. Lines are returned without
// their terminating newline or carriage return.
func NewLineReader(r io.Reader) LineReader {
	return &reader{br: bufio.NewReader(r)}
}

func (r *reader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	line, err := r.br.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}

	line = strings.TrimSuffix(line, "\n")

	return strings.TrimSuffix(line, "\r"), nil
}
