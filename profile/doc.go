// Package profile provides optional runtime profiling for the cs command.
//
// Profiling uses [github.com/pkg/profile] and must be enabled at build time
// with the "pprof" build tag:
//
//	go build -tags pprof -o cs .
//	./cs --pprof-mode cpu script.cmds
//
// Without the tag, [Modes] is empty and [Profiler.Start] returns a no-op
// whose Stop is safe to call.
//
// Profiles are written to the directory named by [WithPath], one file per
// mode (cpu.pprof, mem.pprof, ...). Analyze them with go tool pprof:
//
//	go tool pprof -http=: ./cs ~/.cache/cs/pprof/cpu.pprof
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
