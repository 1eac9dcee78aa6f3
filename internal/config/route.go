package config

// RouteKind selects how a matched route is served.
type RouteKind string

// Route kinds.
const (
	RouteKindProxy     RouteKind = "proxy"
	RouteKindAggregate RouteKind = "aggregate"
	RouteKindFallback  RouteKind = "fallback"
)

// Route represents a routing rule. Routes are evaluated in declaration
// order and the first match wins.
type Route struct {
	Name       string              `yaml:"name" json:"name"`
	Match      RouteMatch          `yaml:"match" json:"match"`
	Kind       RouteKind           `yaml:"kind,omitempty" json:"kind,omitempty"`
	Service    string              `yaml:"service,omitempty" json:"service,omitempty"`
	Rewrite    *RewriteConfig      `yaml:"rewrite,omitempty" json:"rewrite,omitempty"`
	Fallback   string              `yaml:"fallback,omitempty" json:"fallback,omitempty"`
	Resilience *ResilienceConfig   `yaml:"resilience,omitempty" json:"resilience,omitempty"`
	Timeout    Duration            `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Headers    *HeaderManipulation `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// EffectiveKind returns the route kind, defaulting to proxy.
func (r *Route) EffectiveKind() RouteKind {
	if r.Kind == "" {
		return RouteKindProxy
	}
	return r.Kind
}

// RouteMatch selects requests by path and method. Exactly one of Path
// (glob with * and **), Exact or Regex is set.
type RouteMatch struct {
	Path    string   `yaml:"path,omitempty" json:"path,omitempty"`
	Exact   string   `yaml:"exact,omitempty" json:"exact,omitempty"`
	Regex   string   `yaml:"regex,omitempty" json:"regex,omitempty"`
	Methods []string `yaml:"methods,omitempty" json:"methods,omitempty"`
}

// RewriteConfig rewrites the backend-facing path. Replacement may
// reference named groups of Regex as ${name}.
type RewriteConfig struct {
	Regex       string `yaml:"regex" json:"regex"`
	Replacement string `yaml:"replacement" json:"replacement"`
}

// ResilienceConfig binds a route to a circuit breaker and a fallback.
type ResilienceConfig struct {
	CircuitBreaker string `yaml:"circuitBreaker" json:"circuitBreaker"`
	Fallback       string `yaml:"fallback" json:"fallback"`
}

// HeaderManipulation contains request header changes applied before proxying.
type HeaderManipulation struct {
	Set    map[string]string `yaml:"set,omitempty" json:"set,omitempty"`
	Remove []string          `yaml:"remove,omitempty" json:"remove,omitempty"`
}
