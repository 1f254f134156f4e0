package logger

import (
    "bytes"
    "context"
    "encoding/json"
    "errors"
    "testing"

    "github.com/rs/zerolog"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLoggerCarriesContextFields(t *testing.T) {
    var buf bytes.Buffer
    l := New(Options{ServiceName: "deliverydesk", Level: zerolog.DebugLevel, Output: &buf})

    ctx := l.WithFields(context.Background(), map[string]any{"action_id": "a1", "kind": "Delete"})
    l.Error(ctx, "replay failed", errors.New("boom"))

    var entry map[string]any
    require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
    assert.Equal(t, "deliverydesk", entry["service"])
    assert.Equal(t, "a1", entry["action_id"])
    assert.Equal(t, "Delete", entry["kind"])
    assert.Equal(t, "boom", entry["error"])
    assert.Equal(t, "error", entry["level"])
}

func TestLoggerRespectsLevel(t *testing.T) {
    var buf bytes.Buffer
    l := New(Options{Level: zerolog.WarnLevel, Output: &buf})
    l.Info(context.Background(), "hidden")
    assert.Zero(t, buf.Len())
    l.Warn(context.Background(), "shown")
    assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
    assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
    assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
    assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}
