package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles used by the pretty handlers. Styles are bound to
// a renderer for the handler's writer, so color is dropped automatically
// when the writer cannot display it.
type palette struct {
	key, str, num, yes, no, dur, time lipgloss.Style
	level                             [4]lipgloss.Style // trace/debug, info, warn, error
}

func newPalette(w io.Writer) *palette {
	r := lipgloss.NewRenderer(w)
	fg := func(c string) lipgloss.Style { return r.NewStyle().Foreground(lipgloss.Color(c)) }

	return &palette{
		key:  fg("8"),
		str:  fg("6"),
		num:  fg("3"),
		yes:  fg("2"),
		no:   fg("1"),
		dur:  fg("5"),
		time: fg("4"),
		level: [4]lipgloss.Style{
			fg("4"), fg("2"), fg("3").Bold(true), fg("1").Bold(true),
		},
	}
}

func (p *palette) forLevel(l slog.Level) lipgloss.Style {
	switch {
	case l >= slog.LevelError:
		return p.level[3]
	case l >= slog.LevelWarn:
		return p.level[2]
	case l >= slog.LevelInfo:
		return p.level[1]
	default:
		return p.level[0]
	}
}

// prettyHandler renders records as colorized key=value lines (text) or as
// indented, unquoted objects (JSON).
type prettyHandler struct {
	opts   slog.HandlerOptions
	json   bool
	mu     *sync.Mutex
	w      io.Writer
	pal    *palette
	attrs  []slog.Attr
	prefix string
}

func newPrettyTextHandler(w io.Writer, opts *slog.HandlerOptions) *prettyHandler {
	return &prettyHandler{opts: *opts, mu: &sync.Mutex{}, w: w, pal: newPalette(w)}
}

func newPrettyJSONHandler(w io.Writer, opts *slog.HandlerOptions) *prettyHandler {
	h := newPrettyTextHandler(w, opts)
	h.json = true

	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	c.attrs = append(c.attrs, h.attrs...)

	for _, a := range attrs {
		a.Key = h.prefix + a.Key
		c.attrs = append(c.attrs, a)
	}

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.prefix = h.prefix + name + "."

	return &c
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]slog.Attr, 0, 4+len(h.attrs)+r.NumAttrs())

	if !r.Time.IsZero() {
		fields = h.appendReplaced(fields, slog.Time(slog.TimeKey, r.Time))
	}

	fields = h.appendReplaced(fields, slog.Any(slog.LevelKey, r.Level))

	if h.opts.AddSource {
		if src := r.Source(); src != nil {
			fields = append(fields, slog.String(slog.SourceKey, src.File+":"+strconv.Itoa(src.Line)))
		}
	}

	fields = append(fields, slog.String(slog.MessageKey, r.Message))
	fields = append(fields, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		a.Key = h.prefix + a.Key
		fields = append(fields, a)

		return true
	})

	var buf bytes.Buffer

	if h.json {
		buf.WriteString("{\n")
	}

	for i, a := range fields {
		h.writeField(&buf, i, a, r.Level)
	}

	if h.json {
		buf.WriteString("\n}")
	}

	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

// appendReplaced passes a built-in attribute through ReplaceAttr, dropping
// it when the result is empty.
func (h *prettyHandler) appendReplaced(fields []slog.Attr, a slog.Attr) []slog.Attr {
	if h.opts.ReplaceAttr != nil {
		a = h.opts.ReplaceAttr(nil, a)
	}

	if a.Equal(slog.Attr{}) {
		return fields
	}

	return append(fields, a)
}

func (h *prettyHandler) writeField(buf *bytes.Buffer, i int, a slog.Attr, level slog.Level) {
	switch {
	case h.json && i > 0:
		buf.WriteString(",\n  ")
	case h.json:
		buf.WriteString("  ")
	case i > 0:
		buf.WriteByte(' ')
	}

	buf.WriteString(h.pal.key.Render(a.Key))

	if h.json {
		buf.WriteString(": ")
	} else {
		buf.WriteByte('=')
	}

	if a.Key == slog.LevelKey {
		buf.WriteString(h.pal.forLevel(level).Render(a.Value.String()))

		return
	}

	h.writeValue(buf, a.Value.Resolve())
}

func (h *prettyHandler) writeValue(buf *bytes.Buffer, v slog.Value) {
	switch v.Kind() {
	case slog.KindString:
		buf.WriteString(h.pal.str.Render(v.String()))

	case slog.KindInt64, slog.KindUint64, slog.KindFloat64:
		buf.WriteString(h.pal.num.Render(v.String()))

	case slog.KindBool:
		if v.Bool() {
			buf.WriteString(h.pal.yes.Render("true"))
		} else {
			buf.WriteString(h.pal.no.Render("false"))
		}

	case slog.KindDuration:
		buf.WriteString(h.pal.dur.Render(v.Duration().String()))

	case slog.KindTime:
		buf.WriteString(h.pal.time.Render(v.Time().String()))

	case slog.KindGroup:
		part := make([]string, 0, len(v.Group()))

		for _, a := range v.Group() {
			var sub bytes.Buffer

			h.writeValue(&sub, a.Value.Resolve())
			part = append(part, h.pal.key.Render(a.Key)+"="+sub.String())
		}

		buf.WriteString("{" + strings.Join(part, " ") + "}")

	case slog.KindAny:
		if v.Any() == nil {
			buf.WriteString(h.pal.key.Render("null"))

			return
		}

		buf.WriteString(h.pal.str.Render(fmt.Sprint(v.Any())))

	default:
		buf.WriteString(h.pal.str.Render(v.String()))
	}
}
