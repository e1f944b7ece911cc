package lang

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"

	"github.com/ardnew/cmds/lang/parser"
)

// CacheSize is the number of compiled programs kept. The least recently
// used program is evicted first.
const CacheSize = 256

// programCache stores compiled programs keyed by the hash of their source.
// Syntax trees are immutable, so one program may back any number of
// evaluations.
//
//nolint:gochecknoglobals
var programCache = newProgramCache(CacheSize)

func newProgramCache(size int) *lru.Cache[string, *compiled] {
	c, err := lru.New[string, *compiled](size)
	if err != nil {
		panic(err) // only for a non-positive size
	}

	return c
}

// compiled tracks the compilation of one source text.
type compiled struct {
	once sync.Once
	prog *parser.Program
	err  error
}

// Compile tokenizes and parses src, reusing the result of an earlier
// compilation of identical source. The error is a [*lexer.Error] or a
// [*parser.Error].
func (in *Interpreter) Compile(ctx context.Context, src string) (*parser.Program, error) {
	sum := xxh3.HashString(src)
	key := strconv.FormatUint(sum, 36) + ":" + strconv.Itoa(len(src))

	entry, hit := programCache.Get(key)
	if !hit {
		// Another goroutine may have added the same source since Get.
		var prev *compiled

		entry = new(compiled)
		if prev, hit, _ = programCache.PeekOrAdd(key, entry); hit {
			entry = prev
		}
	}

	in.logger.TraceContext(ctx, "cache lookup",
		slog.String("source_hash", strconv.FormatUint(sum, 16)),
		slog.Int("source_bytes", len(src)),
		slog.Bool("cache_hit", hit),
	)

	entry.once.Do(func() {
		entry.prog, entry.err = parser.ParseString(src, parser.WithLogger(in.logger))
	})

	return entry.prog, entry.err
}

// CompileReader reads all of r and compiles it with [Interpreter.Compile].
func (in *Interpreter) CompileReader(ctx context.Context, r io.Reader) (*parser.Program, error) {
	// Read ahead asynchronously so large scripts stream while being copied.
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadInput.Wrap(err).With(slog.String("source", "reader"))
	}

	in.logger.TraceContext(ctx, "read input",
		slog.Int("source_bytes", len(data)),
		slog.Bool("read_ahead", true),
	)

	return in.Compile(ctx, string(data))
}

// Run compiles src and evaluates it in root.
func (in *Interpreter) Run(ctx context.Context, src string, root *Scope) (Value, error) {
	prog, err := in.Compile(ctx, src)
	if err != nil {
		return nil, err
	}

	return in.Evaluate(ctx, prog, root)
}

// ClearCache removes every compiled program.
func ClearCache() {
	programCache.Purge()
}

// CacheLen returns the number of compiled programs held.
func CacheLen() int {
	return programCache.Len()
}
