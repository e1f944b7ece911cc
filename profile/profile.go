package profile

// Profiler describes a profiling session.
type Profiler struct {
	mode  string
	path  string
	quiet bool
}

// Option configures a [Profiler].
type Option func(Profiler) Profiler

// New returns a Profiler configured with opts.
func New(opts ...Option) Profiler {
	var p Profiler

	for _, opt := range opts {
		p = opt(p)
	}

	return p
}

// WithMode sets the profiling mode. It must be one of [Modes].
func WithMode(mode string) Option {
	return func(p Profiler) Profiler {
		p.mode = mode

		return p
	}
}

// WithPath sets the directory profiles are written to.
func WithPath(path string) Option {
	return func(p Profiler) Profiler {
		p.path = path

		return p
	}
}

// WithQuiet suppresses the profiler's own start/stop messages.
func WithQuiet(quiet bool) Option {
	return func(p Profiler) Profiler {
		p.quiet = quiet

		return p
	}
}

// Mode returns the configured mode.
func (p Profiler) Mode() string { return p.mode }

// Start begins profiling and returns a handle for stopping it.
//
// If the binary was built without the pprof tag, or no mode is set, or the
// mode is unknown, Start returns a no-op. Stop is always safe to call.
func (p Profiler) Start() interface{ Stop() } {
	if p.mode == "" {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
