package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/middleware"
	"github.com/vyrodovalexey/gymgw/internal/observability"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		envValue string
		setEnv   bool
		expected string
	}{
		{name: "returns default when env not set", key: "GYMGW_TEST_NOTSET", expected: "default-value"},
		{name: "returns env value when set", key: "GYMGW_TEST_SET", envValue: "env-value", setEnv: true, expected: "env-value"},
		{name: "returns default when env is empty string", key: "GYMGW_TEST_EMPTY", setEnv: true, expected: "default-value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setEnv {
				t.Setenv(tt.key, tt.envValue)
			}
			assert.Equal(t, tt.expected, getEnvOrDefault(tt.key, "default-value"))
		})
	}
}

func TestParseFlags(t *testing.T) {
	t.Setenv("GATEWAY_LOG_LEVEL", "debug")

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	f, err := parseFlags(fs, []string{"-config", "gw.yaml", "-log-format", "console"})
	require.NoError(t, err)

	assert.Equal(t, "gw.yaml", f.configPath)
	assert.Equal(t, "debug", f.logLevel)
	assert.Equal(t, "console", f.logFormat)
	assert.False(t, f.showVersion)

	fs = flag.NewFlagSet("gateway", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	_, err = parseFlags(fs, []string{"-unknown"})
	assert.Error(t, err)
}

func TestPrintVersion(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printVersion(&buf)
	assert.Contains(t, buf.String(), "gymgw version "+version)
	assert.Contains(t, buf.String(), "Git commit: "+gitCommit)
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)

	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.yaml")
	require.NoError(t, os.WriteFile(valid, []byte("metadata:\n  name: from-file\n"), 0o600))
	cfg, err = loadConfig(valid)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Metadata.Name)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("spec:\n  listeners: []\n"), 0o600))
	_, err = loadConfig(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, err = loadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLogConfig(t *testing.T) {
	t.Parallel()

	lc := logConfig(cliFlags{}, config.LoggingConfig{})
	assert.Equal(t, observability.DefaultLogConfig(), lc)

	lc = logConfig(cliFlags{}, config.LoggingConfig{Level: "warn", Format: "console", Output: "stderr"})
	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, "console", lc.Format)
	assert.Equal(t, "stderr", lc.Output)

	lc = logConfig(cliFlags{logLevel: "debug", logFormat: "json"}, config.LoggingConfig{Level: "warn", Format: "console"})
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
}

func TestBuildMiddlewareChain(t *testing.T) {
	t.Parallel()

	disabled := false
	tests := []struct {
		name      string
		accessLog *bool
		wantLines bool
	}{
		{name: "access log on by default", wantLines: true},
		{name: "access log disabled", accessLog: &disabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json", Writer: &buf})
			require.NoError(t, err)

			tracer, err := observability.NewTracer(observability.TracerConfig{ServiceName: "test"})
			require.NoError(t, err)

			cfg := config.DefaultConfig()
			cfg.Spec.Observability.Logging.AccessLog = tt.accessLog

			handler := buildMiddlewareChain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.NotEmpty(t, r.Header.Get(middleware.RequestIDHeader))
				w.WriteHeader(http.StatusNoContent)
			}), cfg, logger, tracer)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clases", nil))

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
			assert.Equal(t, tt.wantLines, bytes.Contains(buf.Bytes(), []byte(`"message":"access"`)))
		})
	}
}

func TestNewApplication(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Spec.Listeners = []config.Listener{{Name: "http", Bind: "127.0.0.1", Port: 0}}
	cfg.Spec.Observability.Metrics.Enabled = false
	cfg.Spec.Authentication.JWT.Enabled = false

	app, err := newApplication(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	assert.NotNil(t, app.metrics)
	assert.Equal(t, 1, app.current.Load().components.Breakers.Count())

	ctx := context.Background()
	require.NoError(t, app.gateway.Start(ctx))

	resp, err := http.Get("http://" + app.gateway.Listeners()[0].BoundAddr().String() + "/fallback")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))

	require.NoError(t, app.gateway.Stop(ctx))
	app.close(ctx)
}

func TestApplication_Reload(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Spec.Observability.Metrics.Enabled = false
	cfg.Spec.Authentication.JWT.Enabled = false

	app, err := newApplication(context.Background(), cfg, observability.NopLogger())
	require.NoError(t, err)
	defer app.close(context.Background())

	serve := func(path string) int {
		rec := httptest.NewRecorder()
		app.serve(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}
	require.Equal(t, http.StatusServiceUnavailable, serve("/fallback"))
	first := app.current.Load()

	next := config.DefaultConfig()
	next.Spec.Observability.Metrics.Enabled = false
	next.Spec.Authentication.JWT.Enabled = false
	next.Spec.Routes = next.Spec.Routes[:len(next.Spec.Routes)-4]
	app.reload(next)

	assert.NotSame(t, first, app.current.Load())
	assert.Equal(t, http.StatusNotFound, serve("/fallback"))
	assert.Contains(t, app.breakerStates(), "pagos")

	broken := config.DefaultConfig()
	broken.Spec.Authentication.JWT.JWKSURL = ""
	broken.Spec.Authentication.JWT.JWKSFile = filepath.Join(t.TempDir(), "missing.json")
	current := app.current.Load()
	app.reload(broken)
	assert.Same(t, current, app.current.Load())
}

func TestNewApplication_BuildError(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Spec.Authentication.JWT.JWKSURL = ""
	cfg.Spec.Authentication.JWT.JWKSFile = filepath.Join(t.TempDir(), "missing.json")

	_, err := newApplication(context.Background(), cfg, observability.NopLogger())
	assert.Error(t, err)
}
