package pluginsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/reglet-dev/devkit/wireformat"
)

// LogHandler is a slog.Handler that forwards records to the host logger.
// Attributes are flattened; group members get dotted keys.
type LogHandler struct {
	prefix string
	attrs  []wireformat.LogAttrWire
	level  slog.Leveler
}

// HandlerOption configures a LogHandler.
type HandlerOption func(*LogHandler)

// WithLevel sets the minimum level forwarded to the host.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(h *LogHandler) { h.level = level }
}

// NewLogHandler returns a handler forwarding info and above.
func NewLogHandler(opts ...HandlerOption) *LogHandler {
	h := &LogHandler{level: slog.LevelInfo}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled implements slog.Handler.
func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	msg := wireformat.LogWire{
		Level:   record.Level.String(),
		Message: record.Message,
		Attrs:   append([]wireformat.LogAttrWire(nil), h.attrs...),
	}
	record.Attrs(func(a slog.Attr) bool {
		msg.Attrs = appendAttr(msg.Attrs, h.prefix, a)
		return true
	})
	return notify("log", msg)
}

// WithAttrs implements slog.Handler.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]wireformat.LogAttrWire(nil), h.attrs...)
	for _, a := range attrs {
		next.attrs = appendAttr(next.attrs, h.prefix, a)
	}
	return &next
}

// WithGroup implements slog.Handler.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func appendAttr(dst []wireformat.LogAttrWire, prefix string, a slog.Attr) []wireformat.LogAttrWire {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		group := prefix
		if a.Key != "" {
			group = prefix + a.Key + "."
		}
		for _, member := range a.Value.Group() {
			dst = appendAttr(dst, group, member)
		}
		return dst
	}
	w := toLogAttrWire(a)
	w.Key = prefix + w.Key
	return append(dst, w)
}

func toLogAttrWire(a slog.Attr) wireformat.LogAttrWire {
	w := wireformat.LogAttrWire{Key: a.Key}
	switch v := a.Value; v.Kind() {
	case slog.KindString:
		w.Type, w.Value = "string", v.String()
	case slog.KindInt64:
		w.Type, w.Value = "int64", strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		w.Type, w.Value = "uint64", strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		w.Type, w.Value = "bool", strconv.FormatBool(v.Bool())
	case slog.KindFloat64:
		w.Type, w.Value = "float64", strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindTime:
		w.Type, w.Value = "time", v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		w.Type, w.Value = "duration", v.Duration().String()
	default:
		switch x := v.Any().(type) {
		case nil:
			w.Type, w.Value = "any", "<nil>"
		case error:
			w.Type, w.Value = "error", x.Error()
		case fmt.Stringer:
			w.Type, w.Value = "any", x.String()
		default:
			if data, err := json.Marshal(x); err == nil {
				w.Type, w.Value = "json", string(data)
			} else {
				w.Type, w.Value = "any", fmt.Sprintf("%v", x)
			}
		}
	}
	return w
}
