package profile

import (
	"slices"
	"testing"
)

func TestNew(t *testing.T) {
	p := New(WithMode("cpu"), WithPath("/tmp/p"), WithQuiet(true))

	if p.Mode() != "cpu" || p.path != "/tmp/p" || !p.quiet {
		t.Errorf("New() = %+v", p)
	}
}

func TestStart_NoMode(t *testing.T) {
	stop := New(WithPath(t.TempDir())).Start()
	if _, ok := stop.(ignore); !ok {
		t.Errorf("Start() without mode = %T, want no-op", stop)
	}

	stop.Stop()
}

func TestStart_UnknownMode(t *testing.T) {
	stop := New(WithMode("bogus"), WithQuiet(true)).Start()
	if _, ok := stop.(ignore); !ok {
		t.Errorf("Start() with unknown mode = %T, want no-op", stop)
	}

	stop.Stop()
}

func TestModes_Sorted(t *testing.T) {
	if m := Modes(); !slices.IsSorted(m) {
		t.Errorf("Modes() = %v, not sorted", m)
	}
}
