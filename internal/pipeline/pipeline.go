// Package pipeline composes the gateway request flow: route matching,
// token validation, authorization and dispatch to a backend, the
// member summary or a fallback.
package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/vyrodovalexey/gymgw/internal/auth/jwt"
	"github.com/vyrodovalexey/gymgw/internal/authz"
	"github.com/vyrodovalexey/gymgw/internal/backend"
	"github.com/vyrodovalexey/gymgw/internal/circuitbreaker"
	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/fallback"
	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/router"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

// maxRequestBody bounds the buffered client body of proxied requests.
const maxRequestBody = 10 << 20

// Authorizer decides whether a principal may perform a request.
type Authorizer interface {
	Authorize(ctx context.Context, principal *jwt.Principal, method, path string) authz.Decision
}

// BreakerLookup returns the circuit breaker bound to a name.
type BreakerLookup interface {
	Get(name string) (circuitbreaker.Breaker, bool)
}

// Pipeline is the gateway's http.Handler. It is safe for concurrent use.
type Pipeline struct {
	router     *router.Router
	policy     Authorizer
	caller     backend.Caller
	extractor  jwt.TokenExtractor
	validator  jwt.TokenValidator
	breakers   BreakerLookup
	fallbacks  *fallback.Responder
	aggregator http.Handler
	logger     observability.Logger
	metrics    *observability.Metrics
}

// Option is a functional option for the pipeline.
type Option func(*Pipeline)

// WithValidator sets the token validator. Without one, every request is
// anonymous.
func WithValidator(v jwt.TokenValidator) Option {
	return func(p *Pipeline) {
		p.validator = v
	}
}

// WithExtractor replaces the bearer token extractor.
func WithExtractor(e jwt.TokenExtractor) Option {
	return func(p *Pipeline) {
		p.extractor = e
	}
}

// WithBreakers sets the circuit breaker lookup.
func WithBreakers(b BreakerLookup) Option {
	return func(p *Pipeline) {
		p.breakers = b
	}
}

// WithFallbacks sets the fallback responder.
func WithFallbacks(f *fallback.Responder) Option {
	return func(p *Pipeline) {
		p.fallbacks = f
	}
}

// WithAggregator sets the handler of aggregate routes.
func WithAggregator(h http.Handler) Option {
	return func(p *Pipeline) {
		p.aggregator = h
	}
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = metrics
	}
}

// New creates a pipeline over r, authorizing with policy and calling
// backends through caller.
func New(r *router.Router, policy Authorizer, caller backend.Caller, opts ...Option) *Pipeline {
	p := &Pipeline{
		router:    r,
		policy:    policy,
		caller:    caller,
		extractor: jwt.NewHeaderExtractor("", ""),
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fallbacks == nil {
		p.fallbacks = fallback.NewResponder(p.metrics)
	}
	return p
}

// ServeHTTP implements http.Handler.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := util.ContextWithStartTime(r.Context(), start)
	sw := util.NewStatusCapturingResponseWriter(w)

	routeName := observability.UnmatchedRoute
	defer func() {
		p.metrics.RecordRequest(r.Method, routeName, sw.StatusCode, time.Since(start))
	}()

	result, err := p.router.Match(r.Method, r.URL.Path)
	if err != nil {
		util.WriteError(sw, err)
		return
	}

	route := result.Route
	routeName = route.Name
	ctx = util.ContextWithRoute(ctx, route.Name)
	if len(result.PathParams) > 0 {
		ctx = util.ContextWithPathParams(ctx, result.PathParams)
	}
	r = r.WithContext(ctx)

	principal := p.authenticate(r)

	decision := p.policy.Authorize(ctx, principal, r.Method, r.URL.Path)
	if !decision.Allowed {
		util.WriteError(sw, decision.Err)
		return
	}

	switch route.Config.EffectiveKind() {
	case config.RouteKindFallback:
		p.fallbacks.Write(sw, route.Config.Fallback)
	case config.RouteKindAggregate:
		if p.aggregator == nil {
			util.WriteError(sw, util.NewRouteNotFoundError(r.Method, r.URL.Path))
			return
		}
		p.aggregator.ServeHTTP(sw, r)
	default:
		p.proxy(sw, r, result)
	}
}

// authenticate returns the principal of a valid bearer token, or nil
// when the request carries no token or an invalid one.
func (p *Pipeline) authenticate(r *http.Request) *jwt.Principal {
	if p.validator == nil {
		return nil
	}

	token, err := p.extractor.Extract(r)
	if err != nil {
		return nil
	}

	principal, err := p.validator.Validate(r.Context(), token)
	if err != nil {
		p.logger.WithContext(r.Context()).Debug("bearer token rejected",
			observability.String("path", r.URL.Path),
			observability.Error(err),
		)
		return nil
	}
	return principal
}

func (p *Pipeline) proxy(w http.ResponseWriter, r *http.Request, result *router.MatchResult) {
	route := result.Route.Config

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		util.WriteError(w, util.NewMalformedRequestError("cuerpo de la solicitud no válido"))
		return
	}

	req := backend.Request{
		Service:   route.Service,
		Method:    r.Method,
		Path:      result.RewrittenPath,
		RawQuery:  r.URL.RawQuery,
		Header:    requestHeaders(r.Header, route.Headers),
		Body:      body,
		Timeout:   route.Timeout.Duration(),
		Forwarded: backend.ForwardedFrom(r),
	}

	ctx := util.ContextWithService(r.Context(), route.Service)

	if route.Resilience == nil {
		resp, err := p.caller.Call(ctx, req)
		p.relay(w, resp, err)
		return
	}

	p.proxyWithBreaker(ctx, w, req, route.Resilience)
}

func (p *Pipeline) proxyWithBreaker(
	ctx context.Context,
	w http.ResponseWriter,
	req backend.Request,
	res *config.ResilienceConfig,
) {
	breaker, ok := p.lookupBreaker(res.CircuitBreaker)
	if !ok {
		p.logger.WithContext(ctx).Error("circuit breaker not found",
			observability.String("name", res.CircuitBreaker),
		)
		p.fallbacks.Write(w, res.Fallback)
		return
	}

	var resp *backend.Response
	err := breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = p.caller.Call(ctx, req)
		return callErr
	})
	if err == nil {
		writeResponse(w, resp)
		return
	}

	var callErr *backend.CallError
	if errors.As(err, &callErr) && callErr.Kind == backend.HTTPError && callErr.Response != nil {
		writeResponse(w, callErr.Response)
		return
	}

	if errors.Is(err, util.ErrClientCanceled) {
		p.logger.WithContext(ctx).Debug("client canceled request",
			observability.String("service", req.Service),
			observability.String("circuit_breaker", res.CircuitBreaker),
		)
		util.WriteError(w, err)
		return
	}

	p.logger.WithContext(ctx).Warn("serving fallback",
		observability.String("service", req.Service),
		observability.String("circuit_breaker", res.CircuitBreaker),
		observability.String("fallback", res.Fallback),
		observability.Error(err),
	)
	p.fallbacks.Write(w, res.Fallback)
}

func (p *Pipeline) lookupBreaker(name string) (circuitbreaker.Breaker, bool) {
	if p.breakers == nil {
		return nil, false
	}
	return p.breakers.Get(name)
}

// relay writes a plain proxy outcome: the backend reply when there is
// one, otherwise an error mapped to 502, 504 or 499.
func (p *Pipeline) relay(w http.ResponseWriter, resp *backend.Response, err error) {
	if err == nil {
		writeResponse(w, resp)
		return
	}

	var callErr *backend.CallError
	if errors.As(err, &callErr) && callErr.Kind == backend.HTTPError && callErr.Response != nil {
		writeResponse(w, callErr.Response)
		return
	}
	util.WriteError(w, err)
}

func writeResponse(w http.ResponseWriter, resp *backend.Response) {
	for name, values := range resp.Header {
		if name == "Content-Length" {
			continue
		}
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// requestHeaders copies the client headers and applies the route's
// header changes.
func requestHeaders(in http.Header, m *config.HeaderManipulation) http.Header {
	h := in.Clone()
	if h == nil {
		h = http.Header{}
	}
	if m == nil {
		return h
	}
	for _, name := range m.Remove {
		h.Del(name)
	}
	for name, value := range m.Set {
		h.Set(name, value)
	}
	return h
}
