package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestLogger_Make_DefaultConfiguration(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf)

	if logger.Level() != LevelInfo {
		t.Errorf("expected default level info, got %v", logger.Level())
	}

	if logger.caller {
		t.Error("expected caller disabled by default")
	}

	if logger.Format() != FormatText {
		t.Errorf("expected default format text, got %v", logger.Format())
	}

	if logger.pretty {
		t.Error("expected pretty output disabled for a buffer")
	}
}

func TestLogger_LogMethods_RespectLevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		minLevel Level
		log      func(Logger)
		logged   bool
	}{
		{"trace below info", LevelInfo, func(l Logger) { l.Trace("m") }, false},
		{"trace at trace", LevelTrace, func(l Logger) { l.Trace("m") }, true},
		{"debug below info", LevelInfo, func(l Logger) { l.Debug("m") }, false},
		{"info at info", LevelInfo, func(l Logger) { l.Info("m") }, true},
		{"warn above info", LevelInfo, func(l Logger) { l.Warn("m") }, true},
		{"warn below error", LevelError, func(l Logger) { l.Warn("m") }, false},
		{"error at error", LevelError, func(l Logger) { l.Error("m") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			tt.log(Make(&buf, WithLevel(tt.minLevel)))

			if got := buf.Len() > 0; got != tt.logged {
				t.Errorf("logged = %v, want %v (output %q)", got, tt.logged, buf.String())
			}
		})
	}
}

func TestLogger_TraceLevel_NamedInOutput(t *testing.T) {
	var buf bytes.Buffer

	Make(&buf, WithFormat(FormatJSON), WithLevel(LevelTrace), WithPretty(false)).Trace("command spawn")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}

	if rec["level"] != "TRACE" {
		t.Errorf("level = %v, want TRACE", rec["level"])
	}
}

func TestLogger_Make_WithCaller_IncludesSource(t *testing.T) {
	var buf bytes.Buffer

	Make(&buf, WithFormat(FormatJSON), WithCaller(true), WithPretty(false)).Info("with caller")

	if !strings.Contains(buf.String(), `"source"`) {
		t.Errorf("source missing when caller enabled: %s", buf.String())
	}

	buf.Reset()
	Make(&buf, WithFormat(FormatJSON), WithCaller(false), WithPretty(false)).Info("without caller")

	if strings.Contains(buf.String(), `"source"`) {
		t.Errorf("source present when caller disabled: %s", buf.String())
	}
}

func TestLogger_Make_WithFormat_SetsOutputFormat(t *testing.T) {
	var buf bytes.Buffer

	Make(&buf, WithFormat(FormatText), WithPretty(false)).Info("plain", slog.Int("code", 3))

	out := buf.String()
	if !strings.Contains(out, "msg=plain") || !strings.Contains(out, "code=3") {
		t.Errorf("unexpected text output: %s", out)
	}
}

func TestLogger_Pretty_WritesAllLevels(t *testing.T) {
	for _, format := range []Format{FormatText, FormatJSON} {
		var buf bytes.Buffer

		logger := Make(&buf, WithLevel(LevelTrace), WithFormat(format), WithPretty(true))
		logger.Trace("t")
		logger.Debug("d")
		logger.Info("i")
		logger.Warn("w")
		logger.Error("e")

		for _, msg := range []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"} {
			if !strings.Contains(buf.String(), msg) {
				t.Errorf("%v: level %s missing from output:\n%s", format, msg, buf.String())
			}
		}
	}
}

func TestLogger_With_AddsAttributes(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithFormat(FormatJSON), WithPretty(false)).With(slog.String("component", "proc"))
	logger.Info("spawn")

	if !strings.Contains(buf.String(), `"component":"proc"`) {
		t.Errorf("attribute missing: %s", buf.String())
	}
}

func TestLogger_Wrap_KeepsBaseConfiguration(t *testing.T) {
	var buf bytes.Buffer

	base := Make(&buf, WithFormat(FormatText), WithPretty(false))
	wrapped := base.Wrap(WithLevel(LevelDebug))

	if wrapped.Format() != FormatText {
		t.Errorf("format = %v, want text", wrapped.Format())
	}

	if base.Level() != LevelInfo {
		t.Errorf("base level changed to %v", base.Level())
	}

	wrapped.Debug("visible")

	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug message missing: %q", buf.String())
	}
}

func TestLogger_ConcurrentCalls_ThreadSafe(t *testing.T) {
	var (
		mu  sync.Mutex
		buf bytes.Buffer
		wg  sync.WaitGroup
	)

	logger := Make(lockedWriter{&mu, &buf}, WithPretty(false))

	for range 50 {
		wg.Go(func() {
			logger.Info("concurrent")
			_ = logger.Level()
		})
	}

	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 50 {
		t.Errorf("expected 50 lines, got %d", len(lines))
	}
}

func TestLogger_ZeroValue_Safety(t *testing.T) {
	var l Logger

	l.Trace("test")
	l.Info("test")
	l.Error("test")

	if l.With(slog.String("key", "value")).Logger != nil {
		t.Error("expected nil logger from zero value With")
	}

	if l.Level() != DefaultLevel {
		t.Errorf("zero value level = %v", l.Level())
	}
}

func TestLogger_TimeLayoutNone_OmitsTime(t *testing.T) {
	var buf bytes.Buffer

	Make(&buf, WithFormat(FormatJSON), WithTimeLayout("none"), WithPretty(false)).Info("test")

	if strings.Contains(buf.String(), `"time"`) {
		t.Errorf("expected no time field, got: %s", buf.String())
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (l lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.w.Write(p)
}

func BenchmarkLogger_Info_WithAttributes(b *testing.B) {
	var buf bytes.Buffer

	logger := Make(&buf, WithPretty(false))

	for b.Loop() {
		buf.Reset()
		logger.Info("bench", slog.String("text", "echo hi"), slog.Int("code", 0))
	}
}
