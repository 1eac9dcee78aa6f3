package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

const escapedDollar = "\x00ESCAPED_DOLLAR\x00"

// Loader handles configuration loading from files and readers.
// Documents are decoded over DefaultConfig, so keys absent from the
// file keep their defaults while present lists replace them wholesale.
type Loader struct {
	lookupEnv func(string) (string, bool)
	strict    bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnvLookup replaces os.LookupEnv for variable substitution.
func WithEnvLookup(fn func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookupEnv = fn
	}
}

// WithStrict rejects unknown YAML keys.
func WithStrict(strict bool) LoaderOption {
	return func(l *Loader) {
		l.strict = strict
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadConfig loads configuration from a file path.
func LoadConfig(path string) (*GatewayConfig, error) {
	return NewLoader().Load(path)
}

// Load loads configuration from a file path.
func (l *Loader) Load(path string) (*GatewayConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return l.parse(data)
}

// LoadFromReader loads configuration from an io.Reader.
func (l *Loader) LoadFromReader(r io.Reader) (*GatewayConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return l.parse(data)
}

func (l *Loader) parse(data []byte) (*GatewayConfig, error) {
	content := l.substituteEnvVars(string(data))

	cfg := DefaultConfig()
	if strings.TrimSpace(content) == "" {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader([]byte(content)))
	dec.KnownFields(l.strict)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return cfg, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns.
// A literal dollar sign is written as $$.
func (l *Loader) substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", escapedDollar)

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}
		if value, ok := l.lookupEnv(submatches[1]); ok {
			return value
		}
		if len(submatches) >= 3 {
			return submatches[2]
		}
		return ""
	})

	return strings.ReplaceAll(result, escapedDollar, "$")
}
