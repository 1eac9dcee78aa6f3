package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{name: "json info", cfg: LogConfig{Level: "info", Format: "json"}},
		{name: "console debug", cfg: LogConfig{Level: "debug", Format: "console"}},
		{name: "stderr", cfg: LogConfig{Level: "warn", Output: "stderr"}},
		{name: "bad level", cfg: LogConfig{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: LogConfig{Level: "info", Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestLogger_WithContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "info", Format: "json", Writer: &buf})
	require.NoError(t, err)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithTraceID(ctx, "trace-1")
	logger.WithContext(ctx).With(String("route", "clases-service")).Info("handled", Int("status", 200))
	require.NoError(t, logger.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "handled", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "trace-1", line["trace_id"])
	assert.Equal(t, "clases-service", line["route"])
	assert.Equal(t, float64(200), line["status"])
}

func TestLogger_LevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := NewLogger(LogConfig{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Debug("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestLogger_WithContextEmpty(t *testing.T) {
	t.Parallel()

	logger := NopLogger()
	assert.Same(t, logger, logger.WithContext(context.Background()))
}

func TestGlobalLogger(t *testing.T) {
	assert.NotNil(t, L())

	custom := NopLogger()
	SetGlobalLogger(custom)
	defer SetGlobalLogger(nil)
	assert.Same(t, custom, L())
}

func TestContextIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(ctx))
}
