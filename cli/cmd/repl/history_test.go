package repl

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lines(h *History) []string {
	var out []string

	for _, e := range h.Entries() {
		out = append(out, e.Line)
	}

	return out
}

func TestHistory_Write(t *testing.T) {
	h := NewHistory(3)

	for _, line := range []string{"a", "b", "b", "  ", "c", "a", "d"} {
		if err := h.Write(line, modeEval); err != nil {
			t.Fatalf("Write(%q): %v", line, err)
		}
	}

	// "b" is written once, "a" moves to the end, and the oldest is dropped
	if diff := cmp.Diff([]string{"c", "a", "d"}, lines(h)); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestHistory_ModesAreDistinct(t *testing.T) {
	h := NewHistory(10)

	_ = h.Write("help", modeEval)
	_ = h.Write("help", modeCtrl)

	if h.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", h.Len())
	}

	e, err := h.GetEntry(1)
	if err != nil {
		t.Fatal(err)
	}

	if e.Mode != modeCtrl {
		t.Errorf("entry 1 mode = %v, want ctrl", e.Mode)
	}
}

func TestHistory_GetEntryOutOfBounds(t *testing.T) {
	h := NewHistory(0)

	for _, i := range []int{-1, 0, 1} {
		if _, err := h.GetEntry(i); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("GetEntry(%d) error = %v, want ErrOutOfBounds", i, err)
		}
	}
}

func TestOpenHistory_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), BaseHistory)

	h, err := OpenHistory(path, 3)
	if err != nil {
		t.Fatalf("OpenHistory: %v", err)
	}

	for _, line := range []string{"x = 1", "print(x)", "quit", "x = 1", "y = 2"} {
		mode := modeEval
		if line == "quit" {
			mode = modeCtrl
		}

		if err := h.Write(line, mode); err != nil {
			t.Fatalf("Write(%q): %v", line, err)
		}
	}

	want := lines(h)

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	h, err = OpenHistory(path, 3)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	t.Cleanup(func() { _ = h.Close() })

	if diff := cmp.Diff([]string{"quit", "x = 1", "y = 2"}, want); diff != "" {
		t.Errorf("entries before reopen (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(want, lines(h)); diff != "" {
		t.Errorf("entries after reopen (-want +got):\n%s", diff)
	}

	if e, _ := h.GetEntry(0); e.Mode != modeCtrl {
		t.Errorf("entry 0 mode = %v, want ctrl", e.Mode)
	}

	// writes after reopen continue the sequence
	if err := h.Write("z = 3", modeEval); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff([]string{"x = 1", "y = 2", "z = 3"}, lines(h)); diff != "" {
		t.Errorf("entries after write (-want +got):\n%s", diff)
	}
}

func TestHistory_CloseWithoutDatabase(t *testing.T) {
	if err := NewHistory(1).Close(); err != nil {
		t.Errorf("Close() = %v, want nil", err)
	}
}
