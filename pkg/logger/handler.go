package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	initialBufferCapacity = 256

	// TimeFormat is the timestamp layout of every log line, in local time.
	TimeFormat = "2006-01-02T15:04:05-07:00"
)

// output is shared by a handler and every handler derived from it, so that
// lines written through With loggers never interleave.
type output struct {
	mu sync.Mutex
	w  io.Writer
}

// CustomHandler writes one logfmt-style line per record:
//
//	2006-01-02T15:04:05-07:00 LEVEL message key=value group.key="quoted value"
//
// Attributes added with WithAttrs are rendered once, under the groups open at
// that time.
type CustomHandler struct {
	out    *output
	level  *slog.LevelVar
	prefix []byte
	group  string
}

// NewFileHandler appends to the file at path, creating it with
// LogFilePermissions. The parent directory must exist.
func NewFileHandler(path string, level Level) (*CustomHandler, error) {
	//nolint:gosec // path comes from the configuration or the XDG state dir
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, LogFilePermissions)
	if err != nil {
		return nil, err
	}

	return NewWriterHandler(file, level), nil
}

// NewWriterHandler creates a handler writing to w.
func NewWriterHandler(w io.Writer, level Level) *CustomHandler {
	lv := &slog.LevelVar{}
	lv.Set(level.ToSlogLevel())

	return &CustomHandler{
		out:   &output{w: w},
		level: lv,
	}
}

// SetLevel changes the minimum level of h and every handler derived from it.
func (h *CustomHandler) SetLevel(level Level) {
	h.level.Set(level.ToSlogLevel())
}

// Enabled reports whether the handler handles records at the given level.
func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats r and writes it as a single line.
func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, initialBufferCapacity)

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	buf = ts.Local().AppendFormat(buf, TimeFormat)
	buf = append(buf, ' ')
	buf = append(buf, r.Level.String()...)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	buf = append(buf, h.prefix...)

	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.group, a)

		return true
	})

	buf = append(buf, '\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()

	_, err := h.out.w.Write(buf)

	return err
}

// appendAttr renders a under group. Group values are flattened into dotted
// keys and empty attributes are dropped.
func appendAttr(buf []byte, group string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return buf
	}

	if a.Value.Kind() == slog.KindGroup {
		nested := joinKey(group, a.Key)
		for _, ga := range a.Value.Group() {
			buf = appendAttr(buf, nested, ga)
		}

		return buf
	}

	buf = append(buf, ' ')
	buf = append(buf, joinKey(group, a.Key)...)
	buf = append(buf, '=')

	val := a.Value.String()
	if needsQuoting(val) {
		return append(buf, quoteValue(val)...)
	}

	return append(buf, val...)
}

func joinKey(group, key string) string {
	switch {
	case group == "":
		return key
	case key == "":
		return group
	default:
		return group + "." + key
	}
}

func needsQuoting(s string) bool {
	if s == "" {
		return true
	}

	return strings.ContainsAny(s, " \t\r\n\"=")
}

func quoteValue(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	)

	return `"` + r.Replace(s) + `"`
}

// WithAttrs returns a handler that appends attrs to every record.
func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	prefix := make([]byte, len(h.prefix), len(h.prefix)+initialBufferCapacity)
	copy(prefix, h.prefix)

	for _, a := range attrs {
		prefix = appendAttr(prefix, h.group, a)
	}

	return &CustomHandler{out: h.out, level: h.level, prefix: prefix, group: h.group}
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *CustomHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	return &CustomHandler{out: h.out, level: h.level, prefix: h.prefix, group: joinKey(h.group, name)}
}

// Close closes the underlying writer if it implements io.Closer.
func (h *CustomHandler) Close() error {
	h.out.mu.Lock()
	defer h.out.mu.Unlock()

	if closer, ok := h.out.w.(io.Closer); ok {
		return closer.Close()
	}

	return nil
}
