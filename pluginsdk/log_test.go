package pluginsdk

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/reglet-dev/devkit/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToLogAttrWire(t *testing.T) {
	tests := []struct {
		name     string
		attr     slog.Attr
		wantType string
		wantVal  string
	}{
		{"string", slog.String("file", "app.css"), "string", "app.css"},
		{"int64", slog.Int64("bytes", 123), "int64", "123"},
		{"uint64", slog.Uint64("hash", 42), "uint64", "42"},
		{"bool", slog.Bool("minified", true), "bool", "true"},
		{"float64", slog.Float64("ratio", 1.25), "float64", "1.25"},
		{"time", slog.Time("at", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)), "time", "2024-01-01T00:00:00Z"},
		{"duration", slog.Duration("took", time.Hour), "duration", "1h0m0s"},
		{"error", slog.Any("err", errors.New("parse failed")), "error", "parse failed"},
		{"stringer", slog.Any("url", &url.URL{Scheme: "http", Host: "localhost:8080"}), "any", "http://localhost:8080"},
		{"nil", slog.Any("x", nil), "any", "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := toLogAttrWire(tt.attr)
			assert.Equal(t, tt.attr.Key, w.Key)
			assert.Equal(t, tt.wantType, w.Type)
			assert.Equal(t, tt.wantVal, w.Value)
		})
	}
}

func TestToLogAttrWire_JSON(t *testing.T) {
	type stats struct {
		Files int `json:"files"`
	}
	w := toLogAttrWire(slog.Any("stats", stats{Files: 3}))
	assert.Equal(t, "json", w.Type)
	assert.JSONEq(t, `{"files":3}`, w.Value)
}

type logValuer string

func (l logValuer) LogValue() slog.Value { return slog.StringValue(string(l)) }

func TestLogHandler(t *testing.T) {
	f := useHost(t, nil)
	logger := slog.New(NewLogHandler(WithLevel(slog.LevelDebug))).
		With("plugin_version", "0.3.0").
		WithGroup("build")

	logger.Debug("compiled",
		slog.Int("files", 3),
		slog.Group("out", slog.String("dir", "dist")),
		slog.Any("secret", logValuer("resolved")),
	)

	require.Len(t, f.calls, 1)
	assert.Equal(t, "log", f.calls[0].name)
	assert.True(t, f.calls[0].void)

	var msg wireformat.LogWire
	require.NoError(t, json.Unmarshal(f.calls[0].req, &msg))
	assert.Equal(t, "DEBUG", msg.Level)
	assert.Equal(t, "compiled", msg.Message)

	keys := make(map[string]string)
	for _, a := range msg.Attrs {
		keys[a.Key] = a.Value
	}
	assert.Equal(t, map[string]string{
		"plugin_version": "0.3.0",
		"build.files":    "3",
		"build.out.dir":  "dist",
		"build.secret":   "resolved",
	}, keys)
}

func TestLogHandler_Level(t *testing.T) {
	h := NewLogHandler()
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))

	f := useHost(t, nil)
	slog.New(h).Debug("dropped")
	assert.Empty(t, f.calls)
}
