package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

// backendTracer is the OTEL tracer used for outbound calls.
var backendTracer = otel.Tracer("gymgw/backend")

// maxResponseBody bounds how much of a backend reply is buffered.
const maxResponseBody = 10 << 20

// errCallTimeout is the cancellation cause of an expired per-call deadline.
var errCallTimeout = errors.New("backend call timed out")

// hopHeaders are headers that should not be forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ErrorKind classifies a failed backend call.
type ErrorKind int

// Failure kinds.
const (
	ConnectionError ErrorKind = iota
	Timeout
	HTTPError

	// Canceled means the inbound request went away before the
	// backend answered.
	Canceled
)

// String returns the outcome label used in logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case HTTPError:
		return "http_error"
	case Canceled:
		return "canceled"
	default:
		return "connection_error"
	}
}

// CallError is the failure result of a backend call. For HTTPError,
// Response holds the non-2xx reply.
type CallError struct {
	Kind     ErrorKind
	Service  string
	Status   int
	Message  string
	Response *Response
	Cause    error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	switch e.Kind {
	case HTTPError:
		return fmt.Sprintf("backend %s: http status %d", e.Service, e.Status)
	default:
		if e.Cause != nil {
			return fmt.Sprintf("backend %s: %s: %s: %v", e.Service, e.Kind, e.Message, e.Cause)
		}
		return fmt.Sprintf("backend %s: %s: %s", e.Service, e.Kind, e.Message)
	}
}

// Unwrap returns the underlying error.
func (e *CallError) Unwrap() error {
	return e.Cause
}

// Is maps timeouts to util.ErrTimeout, connection errors to
// util.ErrBackendUnavail and cancellations to util.ErrClientCanceled.
func (e *CallError) Is(target error) bool {
	switch e.Kind {
	case Timeout:
		return target == util.ErrTimeout
	case ConnectionError:
		return target == util.ErrBackendUnavail
	case Canceled:
		return target == util.ErrClientCanceled
	default:
		return false
	}
}

// Request describes one outbound call.
type Request struct {
	Service  string
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte

	// Timeout overrides the client default when positive.
	Timeout time.Duration

	// Forwarded carries the inbound client address, host and scheme.
	Forwarded Forwarded
}

// Forwarded holds the values for the X-Forwarded-* headers.
type Forwarded struct {
	For   string
	Host  string
	Proto string
}

// ForwardedFrom extracts the forwarding values from an inbound request.
func ForwardedFrom(r *http.Request) Forwarded {
	f := Forwarded{Host: r.Host, Proto: "http"}
	if r.TLS != nil {
		f.Proto = "https"
	}
	if clientIP, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		f.For = clientIP
		if prior := r.Header.Get("X-Forwarded-For"); prior != "" {
			f.For = prior + ", " + clientIP
		}
	}
	return f
}

// Response is a successful backend reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Caller issues backend calls.
type Caller interface {
	Call(ctx context.Context, req Request) (*Response, error)
}

// Client calls gym services through a Resolver.
type Client struct {
	resolver Resolver
	client   *http.Client
	timeout  time.Duration
	logger   observability.Logger
	metrics  *observability.Metrics
}

// ClientOption is a functional option for the client.
type ClientOption func(*Client)

// WithClientLogger sets the logger.
func WithClientLogger(logger observability.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClientMetrics sets the metrics recorder.
func WithClientMetrics(metrics *observability.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithDefaultTimeout sets the per-call timeout used when a request
// does not carry its own.
func WithDefaultTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a backend client.
func NewClient(resolver Resolver, opts ...ClientOption) *Client {
	c := &Client{
		resolver: resolver,
		timeout:  config.DefaultBackendTimeout,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = NewConnectionPool(DefaultPoolConfig()).Client()
	}
	return c
}

// Call performs req with a bounded timeout. A 2xx reply is returned as
// a Response; every other outcome is a *CallError.
func (c *Client) Call(ctx context.Context, req Request) (*Response, error) {
	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	ctx, cancel := context.WithTimeoutCause(ctx, timeout, errCallTimeout)
	defer cancel()

	ctx, span := backendTracer.Start(ctx, "backend "+req.Service,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("peer.service", req.Service),
			attribute.String("http.method", req.Method),
			attribute.String("url.path", req.Path),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := c.do(ctx, req)
	duration := time.Since(start)

	outcome := "success"
	var callErr *CallError
	if errors.As(err, &callErr) {
		outcome = callErr.Kind.String()
		span.SetStatus(codes.Error, err.Error())
		log := c.logger.Warn
		if callErr.Kind == Canceled {
			log = c.logger.Debug
		}
		log("backend call failed",
			observability.String("service", req.Service),
			observability.String("method", req.Method),
			observability.String("path", req.Path),
			observability.String("outcome", outcome),
			observability.Int("status", callErr.Status),
			observability.Duration("duration", duration),
		)
	} else {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	}
	c.metrics.RecordBackendCall(req.Service, outcome, duration)

	return resp, err
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	base, err := c.resolver.Resolve(req.Service)
	if err != nil {
		return nil, &CallError{Kind: ConnectionError, Service: req.Service, Message: "resolve failed", Cause: err}
	}

	target := *base
	target.Path = joinPath(base.Path, req.Path)
	target.RawPath = ""
	target.RawQuery = req.RawQuery

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, &CallError{Kind: ConnectionError, Service: req.Service, Message: "invalid request", Cause: err}
	}

	if req.Header != nil {
		httpReq.Header = req.Header.Clone()
	}
	removeHopHeaders(httpReq.Header)
	setForwarded(httpReq.Header, req.Forwarded)
	observability.InjectTraceContext(ctx, httpReq)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, req.Service, "request failed", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, classify(ctx, req.Service, "reading response failed", err)
	}

	header := httpResp.Header.Clone()
	removeHopHeaders(header)

	resp := &Response{StatusCode: httpResp.StatusCode, Header: header, Body: data}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, &CallError{
			Kind:     HTTPError,
			Service:  req.Service,
			Status:   httpResp.StatusCode,
			Message:  http.StatusText(httpResp.StatusCode),
			Response: resp,
		}
	}
	return resp, nil
}

// classify tells a call that ran out of its own time from one whose
// caller gave up. Only the per-call deadline carries errCallTimeout as
// its cause; a cancelled or expired inbound context does not.
func classify(ctx context.Context, service, message string, err error) *CallError {
	kind := ConnectionError
	var netErr net.Error
	switch {
	case ctx.Err() != nil && !errors.Is(context.Cause(ctx), errCallTimeout):
		kind = Canceled
	case ctx.Err() != nil,
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		kind = Timeout
	}
	return &CallError{Kind: kind, Service: service, Message: message, Cause: err}
}

func removeHopHeaders(h http.Header) {
	for _, f := range h.Values("Connection") {
		for _, name := range strings.Split(f, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

func setForwarded(h http.Header, f Forwarded) {
	if f.For != "" {
		h.Set("X-Forwarded-For", f.For)
	}
	if f.Host != "" {
		h.Set("X-Forwarded-Host", f.Host)
	}
	if f.Proto != "" {
		h.Set("X-Forwarded-Proto", f.Proto)
	}
}

func joinPath(base, path string) string {
	if path == "" {
		path = "/"
	}
	if base == "" || base == "/" {
		return path
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
