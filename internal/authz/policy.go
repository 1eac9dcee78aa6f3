package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/gymgw/internal/auth/jwt"
	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/router"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

// authzTracer is the OTEL tracer used for authorization operations.
var authzTracer = otel.Tracer("gymgw/authz")

// Access is the access level a rule requires.
type Access int

// Access levels.
const (
	Authenticated Access = iota
	Public
	RequiresAnyRole
)

// String returns the configuration name of the access level.
func (a Access) String() string {
	switch a {
	case Public:
		return config.AccessPublic
	case RequiresAnyRole:
		return config.AccessRoles
	default:
		return config.AccessAuthenticated
	}
}

// ParseAccess converts a configuration access name.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(s) {
	case config.AccessPublic:
		return Public, nil
	case config.AccessAuthenticated, "":
		return Authenticated, nil
	case config.AccessRoles:
		return RequiresAnyRole, nil
	default:
		return Authenticated, fmt.Errorf("unknown access level %q", s)
	}
}

// Rule is a compiled authorization rule.
type Rule struct {
	Path    string
	Access  Access
	Roles   []string
	matcher *router.GlobMatcher
	methods *router.MethodMatcher
	literal bool
}

func (r *Rule) matches(method, path string) bool {
	if !r.methods.Match(method) {
		return false
	}
	matched, _ := r.matcher.Match(path)
	return matched
}

// Decision is the outcome of an authorization check.
type Decision struct {
	// Allowed indicates if the request is allowed.
	Allowed bool

	// Reason is the reason for the decision.
	Reason string

	// Rule is the path of the rule that decided, empty for the default.
	Rule string

	// Err is a *util.AuthError when the request is denied.
	Err error
}

func allow(rule, reason string) Decision {
	return Decision{Allowed: true, Rule: rule, Reason: reason}
}

func deny(rule string, err *util.AuthError) Decision {
	return Decision{Rule: rule, Reason: err.Reason, Err: err}
}

// Policy evaluates requests against an ordered rule set. Rules are
// sorted once, most specific first, and the first matching rule
// decides. Requests no rule covers require authentication.
type Policy struct {
	rules   []*Rule
	logger  observability.Logger
	metrics *observability.Metrics
}

// PolicyOption is a functional option for the policy.
type PolicyOption func(*Policy)

// WithPolicyLogger sets the logger.
func WithPolicyLogger(logger observability.Logger) PolicyOption {
	return func(p *Policy) {
		p.logger = logger
	}
}

// WithPolicyMetrics sets the metrics recorder.
func WithPolicyMetrics(metrics *observability.Metrics) PolicyOption {
	return func(p *Policy) {
		p.metrics = metrics
	}
}

// NewPolicy compiles the configured rules.
func NewPolicy(cfg config.AuthorizationConfig, opts ...PolicyOption) (*Policy, error) {
	p := &Policy{
		rules:  make([]*Rule, 0, len(cfg.Rules)),
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	for i, rc := range cfg.Rules {
		access, err := ParseAccess(rc.Access)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rc.Path, err)
		}
		matcher, err := router.NewGlobMatcher(rc.Path)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rc.Path, err)
		}
		p.rules = append(p.rules, &Rule{
			Path:    rc.Path,
			Access:  access,
			Roles:   rc.Roles,
			matcher: matcher,
			methods: router.NewMethodMatcher(rc.Methods),
			literal: !strings.ContainsAny(rc.Path, "*{"),
		})
	}

	sort.SliceStable(p.rules, func(i, j int) bool {
		return moreSpecific(p.rules[i], p.rules[j])
	})

	return p, nil
}

// moreSpecific orders literal paths before patterns, longer literal
// prefixes before shorter ones and method-restricted rules before
// rules that apply to every method.
func moreSpecific(a, b *Rule) bool {
	if a.literal != b.literal {
		return a.literal
	}
	la, lb := len(a.matcher.LiteralPrefix()), len(b.matcher.LiteralPrefix())
	if la != lb {
		return la > lb
	}
	return a.methods.Len() > b.methods.Len()
}

// Rules returns the rules in evaluation order.
func (p *Policy) Rules() []*Rule {
	rules := make([]*Rule, len(p.rules))
	copy(rules, p.rules)
	return rules
}

// Authorize decides whether principal may call method on path. path is
// the original client path, before any rewrite. A nil principal means
// no valid token was presented.
func (p *Policy) Authorize(ctx context.Context, principal *jwt.Principal, method, path string) Decision {
	_, span := authzTracer.Start(ctx, "authz.Authorize",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	d := p.evaluate(principal, method, path)

	span.SetAttributes(
		attribute.Bool("authz.allowed", d.Allowed),
		attribute.String("authz.rule", d.Rule),
	)

	if !d.Allowed {
		kind := "forbidden"
		if errors.Is(d.Err, util.ErrUnauthenticated) {
			kind = "unauthenticated"
		}
		p.metrics.RecordAuthorizationDenial(kind)
		p.logger.Debug("request denied",
			observability.String("method", method),
			observability.String("path", path),
			observability.String("rule", d.Rule),
			observability.String("reason", d.Reason),
		)
	}
	return d
}

func (p *Policy) evaluate(principal *jwt.Principal, method, path string) Decision {
	for _, rule := range p.rules {
		if !rule.matches(method, path) {
			continue
		}
		switch rule.Access {
		case Public:
			return allow(rule.Path, "public")
		case RequiresAnyRole:
			if principal == nil {
				return deny(rule.Path, util.NewUnauthenticatedError("authentication required"))
			}
			if !principal.HasAnyRole(rule.Roles...) {
				return deny(rule.Path, util.NewForbiddenError(
					fmt.Sprintf("requires one of roles %s", strings.Join(rule.Roles, ", "))))
			}
			return allow(rule.Path, "role granted")
		default:
			return requireAuthenticated(rule.Path, principal)
		}
	}
	return requireAuthenticated("", principal)
}

func requireAuthenticated(rule string, principal *jwt.Principal) Decision {
	if principal == nil {
		return deny(rule, util.NewUnauthenticatedError("authentication required"))
	}
	return allow(rule, "authenticated")
}
