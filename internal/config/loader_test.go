package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeEnv(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoader_SubstituteEnvVars(t *testing.T) {
	t.Parallel()

	l := NewLoader(WithEnvLookup(fakeEnv(map[string]string{"HOST": "pagos", "EMPTY": ""})))

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "set variable", input: "http://${HOST}:8080", expected: "http://pagos:8080"},
		{name: "default used", input: "${PORT:-9090}", expected: "9090"},
		{name: "set overrides default", input: "${HOST:-other}", expected: "pagos"},
		{name: "set but empty", input: "[${EMPTY:-x}]", expected: "[]"},
		{name: "unset no default", input: "[${MISSING}]", expected: "[]"},
		{name: "escaped dollar", input: "/$${segment}", expected: "/${segment}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, l.substituteEnvVars(tt.input))
		})
	}
}

func TestLoader_LoadFromReader_OverridesDefaults(t *testing.T) {
	t.Parallel()

	doc := `
apiVersion: gateway.gymgw.io/v1
kind: Gateway
metadata:
  name: test-gw
spec:
  services:
    - name: miembros-service
      instances: ["${MIEMBROS_URL:-http://localhost:9001}"]
  routes:
    - name: miembros-service
      match:
        path: /api/miembros/**
      service: miembros-service
      rewrite:
        regex: /api/miembros/(?<segment>.*)
        replacement: /$${segment}
      timeout: 750ms
`
	l := NewLoader(WithEnvLookup(fakeEnv(nil)))
	cfg, err := l.LoadFromReader(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "test-gw", cfg.Metadata.Name)
	require.Len(t, cfg.Spec.Routes, 1)
	route := cfg.Spec.Routes[0]
	assert.Equal(t, "/${segment}", route.Rewrite.Replacement)
	assert.Equal(t, 750*time.Millisecond, route.Timeout.Duration())
	require.Len(t, cfg.Spec.Services, 1)
	assert.Equal(t, []string{"http://localhost:9001"}, cfg.Spec.Services[0].Instances)

	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultListenerPort, cfg.Spec.Listeners[0].Port)
	assert.Equal(t, DefaultRoleClaim, cfg.Spec.Authentication.JWT.RoleClaim)
	assert.NotEmpty(t, cfg.Spec.Authorization.Rules)
}

func TestLoader_EmptyDocumentYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader().LoadFromReader(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoader_Strict(t *testing.T) {
	t.Parallel()

	doc := "spec:\n  unknownKey: 1\n"

	_, err := NewLoader().LoadFromReader(strings.NewReader(doc))
	assert.NoError(t, err)

	_, err = NewLoader(WithStrict(true)).LoadFromReader(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestLoader_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := NewLoader().LoadFromReader(strings.NewReader("spec: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte("metadata:\n  name: from-file\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Metadata.Name)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoader_ShippedConfigMatchesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := NewLoader(WithEnvLookup(fakeEnv(nil)), WithStrict(true)).
		Load(filepath.Join("..", "..", "configs", "gateway.yaml"))
	require.NoError(t, err)
	require.NoError(t, ValidateConfig(cfg))

	def := DefaultConfig()
	assert.Equal(t, def.Spec.Routes, cfg.Spec.Routes)
	assert.Equal(t, def.Spec.Services, cfg.Spec.Services)
	assert.Equal(t, def.Spec.Authorization, cfg.Spec.Authorization)
	assert.Equal(t, def.Spec.Aggregation, cfg.Spec.Aggregation)
	assert.Equal(t, def.Spec.CircuitBreakers, cfg.Spec.CircuitBreakers)
	assert.Equal(t, def.Spec.Authentication, cfg.Spec.Authentication)
}
