package config

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates gateway configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig validates a gateway configuration.
func ValidateConfig(cfg *GatewayConfig) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration and returns all problems found.
func (v *Validator) Validate(cfg *GatewayConfig) error {
	v.errors = nil

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	if cfg.APIVersion != APIVersion {
		v.addError("apiVersion", fmt.Sprintf("apiVersion must be %q", APIVersion))
	}
	if cfg.Kind != Kind {
		v.addError("kind", fmt.Sprintf("kind must be %q", Kind))
	}
	if cfg.Metadata.Name == "" {
		v.addError("metadata.name", "name is required")
	}

	spec := &cfg.Spec
	services := v.validateServices(spec.Services)
	breakers := v.validateCircuitBreakers(spec.CircuitBreakers)
	v.validateListeners(spec.Listeners)
	v.validateRoutes(spec.Routes, services, breakers)
	v.validateAuthorization(spec.Authorization.Rules)
	v.validateJWT(&spec.Authentication.JWT)
	v.validateAggregation(spec, services)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateListeners(listeners []Listener) {
	if len(listeners) == 0 {
		v.addError("spec.listeners", "at least one listener is required")
	}
	names := make(map[string]bool, len(listeners))
	for i, l := range listeners {
		path := fmt.Sprintf("spec.listeners[%d]", i)
		if l.Name == "" {
			v.addError(path+".name", "name is required")
		} else if names[l.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate listener name %q", l.Name))
		}
		names[l.Name] = true
		if l.Port < 1 || l.Port > 65535 {
			v.addError(path+".port", "port must be between 1 and 65535")
		}
	}
}

func (v *Validator) validateServices(services []Service) map[string]bool {
	known := make(map[string]bool, len(services))
	for i, s := range services {
		path := fmt.Sprintf("spec.services[%d]", i)
		if s.Name == "" {
			v.addError(path+".name", "name is required")
			continue
		}
		if known[s.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate service name %q", s.Name))
		}
		known[s.Name] = true
		if len(s.Instances) == 0 {
			v.addError(path+".instances", "at least one instance is required")
		}
		for j, inst := range s.Instances {
			u, err := url.Parse(inst)
			if err != nil || u.Scheme == "" || u.Host == "" {
				v.addError(fmt.Sprintf("%s.instances[%d]", path, j), "instance must be an absolute URL")
			}
		}
	}
	return known
}

func (v *Validator) validateCircuitBreakers(breakers []CircuitBreakerConfig) map[string]bool {
	known := make(map[string]bool, len(breakers))
	for i, cb := range breakers {
		path := fmt.Sprintf("spec.circuitBreakers[%d]", i)
		if cb.Name == "" {
			v.addError(path+".name", "name is required")
			continue
		}
		if known[cb.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate circuit breaker name %q", cb.Name))
		}
		known[cb.Name] = true
		if cb.FailureThreshold < 1 {
			v.addError(path+".failureThreshold", "failureThreshold must be at least 1")
		}
		if cb.OpenDuration <= 0 {
			v.addError(path+".openDuration", "openDuration must be positive")
		}
		switch cb.Engine {
		case "", EngineNative, EngineGobreaker:
		default:
			v.addError(path+".engine", fmt.Sprintf("unknown engine %q", cb.Engine))
		}
	}
	return known
}

func (v *Validator) validateRoutes(routes []Route, services, breakers map[string]bool) {
	if len(routes) == 0 {
		v.addError("spec.routes", "at least one route is required")
	}
	names := make(map[string]bool, len(routes))
	for i := range routes {
		route := &routes[i]
		path := fmt.Sprintf("spec.routes[%d]", i)

		if route.Name == "" {
			v.addError(path+".name", "name is required")
		} else if names[route.Name] {
			v.addError(path+".name", fmt.Sprintf("duplicate route name %q", route.Name))
		}
		names[route.Name] = true

		v.validateMatch(&route.Match, path+".match")

		switch route.EffectiveKind() {
		case RouteKindProxy:
			if route.Service == "" {
				v.addError(path+".service", "service is required for proxy routes")
			} else if !services[route.Service] {
				v.addError(path+".service", fmt.Sprintf("unknown service %q", route.Service))
			}
		case RouteKindFallback:
			if route.Fallback == "" {
				v.addError(path+".fallback", "fallback is required for fallback routes")
			}
		case RouteKindAggregate:
		default:
			v.addError(path+".kind", fmt.Sprintf("unknown route kind %q", route.Kind))
		}

		if route.Rewrite != nil {
			if _, err := regexp.Compile(route.Rewrite.Regex); err != nil {
				v.addError(path+".rewrite.regex", fmt.Sprintf("invalid regex: %v", err))
			}
		}

		if route.Resilience != nil {
			if !breakers[route.Resilience.CircuitBreaker] {
				v.addError(path+".resilience.circuitBreaker",
					fmt.Sprintf("unknown circuit breaker %q", route.Resilience.CircuitBreaker))
			}
			if route.Resilience.Fallback == "" {
				v.addError(path+".resilience.fallback", "fallback is required")
			}
		}

		if route.Timeout < 0 {
			v.addError(path+".timeout", "timeout must not be negative")
		}
	}
}

func (v *Validator) validateMatch(m *RouteMatch, path string) {
	set := 0
	for _, s := range []string{m.Path, m.Exact, m.Regex} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		v.addError(path, "exactly one of path, exact or regex is required")
	}
	if m.Regex != "" {
		if _, err := regexp.Compile(m.Regex); err != nil {
			v.addError(path+".regex", fmt.Sprintf("invalid regex: %v", err))
		}
	}
	v.validateMethods(m.Methods, path+".methods")
}

func (v *Validator) validateMethods(methods []string, path string) {
	for _, method := range methods {
		switch strings.ToUpper(method) {
		case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions:
		default:
			v.addError(path, fmt.Sprintf("unsupported method %q", method))
		}
	}
}

func (v *Validator) validateAuthorization(rules []AuthorizationRule) {
	for i, rule := range rules {
		path := fmt.Sprintf("spec.authorization.rules[%d]", i)
		if rule.Path == "" {
			v.addError(path+".path", "path is required")
		}
		v.validateMethods(rule.Methods, path+".methods")
		switch rule.Access {
		case AccessPublic, AccessAuthenticated:
		case AccessRoles:
			if len(rule.Roles) == 0 {
				v.addError(path+".roles", "at least one role is required")
			}
		default:
			v.addError(path+".access", fmt.Sprintf("unknown access %q", rule.Access))
		}
	}
}

func (v *Validator) validateJWT(cfg *JWTConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.JWKSURL == "" && cfg.JWKSFile == "" {
		v.addError("spec.authentication.jwt", "one of jwksUrl or jwksFile is required")
	}
	if cfg.JWKSURL != "" && cfg.JWKSFile != "" {
		v.addError("spec.authentication.jwt", "jwksUrl and jwksFile are mutually exclusive")
	}
	if cfg.ClockSkew < 0 {
		v.addError("spec.authentication.jwt.clockSkew", "clockSkew must not be negative")
	}
}

func (v *Validator) validateAggregation(spec *GatewaySpec, services map[string]bool) {
	used := false
	for i := range spec.Routes {
		if spec.Routes[i].Kind == RouteKindAggregate {
			used = true
			break
		}
	}
	if !used {
		return
	}

	sources := []struct {
		name string
		src  SourceConfig
	}{
		{"miembro", spec.Aggregation.Miembro},
		{"clases", spec.Aggregation.Clases},
		{"pagos", spec.Aggregation.Pagos},
	}
	for _, s := range sources {
		src := s.src
		path := "spec.aggregation." + s.name
		if !services[src.Service] {
			v.addError(path+".service", fmt.Sprintf("unknown service %q", src.Service))
		}
		if !strings.Contains(src.Path, "{id}") {
			v.addError(path+".path", "path must contain {id}")
		}
	}
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}
