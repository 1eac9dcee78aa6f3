package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/gymgw/internal/observability"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

func newTestClient(t *testing.T, server *httptest.Server, opts ...ClientOption) *Client {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	opts = append([]ClientOption{
		WithHTTPClient(server.Client()),
		WithClientLogger(observability.NopLogger()),
		WithClientMetrics(observability.NewMetrics("test")),
	}, opts...)
	return NewClient(StaticResolver{"miembros-service": u}, opts...)
}

func TestClient_Call_Success(t *testing.T) {
	t.Parallel()

	type captured struct {
		req  *http.Request
		body []byte
	}
	calls := make(chan captured, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls <- captured{req: r.Clone(context.Background()), body: body}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Connection", "close")
		_, _ = w.Write([]byte(`{"id":42}`))
	}))
	defer server.Close()

	c := newTestClient(t, server)

	header := http.Header{}
	header.Set("Authorization", "Bearer abc")
	header.Set("Connection", "X-Private")
	header.Set("X-Private", "secret")
	header.Set("Keep-Alive", "timeout=5")

	resp, err := c.Call(context.Background(), Request{
		Service:   "miembros-service",
		Method:    http.MethodPost,
		Path:      "/miembros/42",
		RawQuery:  "activo=true",
		Header:    header,
		Body:      []byte(`{"nombre":"Ana"}`),
		Forwarded: Forwarded{For: "10.0.0.1", Host: "gateway.local", Proto: "http"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":42}`, string(resp.Body))
	assert.Empty(t, resp.Header.Get("Connection"))

	call := <-calls
	got, gotBody := call.req, call.body
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/miembros/42", got.URL.Path)
	assert.Equal(t, "activo=true", got.URL.RawQuery)
	assert.Equal(t, "Bearer abc", got.Header.Get("Authorization"))
	assert.Empty(t, got.Header.Get("X-Private"))
	assert.Empty(t, got.Header.Get("Keep-Alive"))
	assert.Equal(t, "10.0.0.1", got.Header.Get("X-Forwarded-For"))
	assert.Equal(t, "gateway.local", got.Header.Get("X-Forwarded-Host"))
	assert.Equal(t, "http", got.Header.Get("X-Forwarded-Proto"))
	assert.Equal(t, `{"nombre":"Ana"}`, string(gotBody))

	assert.Equal(t, "Bearer abc", header.Get("Authorization"))
	assert.Equal(t, "secret", header.Get("X-Private"))
}

func TestClient_Call_HTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"no existe"}`))
	}))
	defer server.Close()

	c := newTestClient(t, server)
	resp, err := c.Call(context.Background(), Request{Service: "miembros-service", Path: "/miembros/9"})
	assert.Nil(t, resp)

	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, HTTPError, callErr.Kind)
	assert.Equal(t, http.StatusNotFound, callErr.Status)
	require.NotNil(t, callErr.Response)
	assert.JSONEq(t, `{"error":"no existe"}`, string(callErr.Response.Body))
	assert.False(t, errors.Is(err, util.ErrTimeout))
	assert.False(t, errors.Is(err, util.ErrBackendUnavail))
}

func TestClient_Call_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := newTestClient(t, server, WithDefaultTimeout(time.Second))

	start := time.Now()
	_, err := c.Call(context.Background(), Request{
		Service: "miembros-service",
		Path:    "/lento",
		Timeout: 50 * time.Millisecond,
	})
	assert.Less(t, time.Since(start), time.Second)

	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, Timeout, callErr.Kind)
	assert.True(t, errors.Is(err, util.ErrTimeout))
	assert.Equal(t, http.StatusGatewayTimeout, util.StatusFromError(err))
}

func TestClient_Call_ClientCanceled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := newTestClient(t, server, WithDefaultTimeout(time.Second))

	expired, cancelExpired := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelExpired()
	cancelled, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	for name, ctx := range map[string]context.Context{"client deadline": expired, "client cancel": cancelled} {
		_, err := c.Call(ctx, Request{Service: "miembros-service", Path: "/lento"})

		var callErr *CallError
		require.True(t, errors.As(err, &callErr), name)
		assert.Equal(t, Canceled, callErr.Kind, name)
		assert.True(t, errors.Is(err, util.ErrClientCanceled), name)
		assert.False(t, errors.Is(err, util.ErrTimeout), name)
		assert.False(t, errors.Is(err, util.ErrBackendUnavail), name)
		assert.Equal(t, util.StatusClientClosedRequest, util.StatusFromError(err), name)
	}
}

func TestClient_Call_ConnectionError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	server.Close()

	c := NewClient(StaticResolver{"pagos-service": u})
	_, err = c.Call(context.Background(), Request{Service: "pagos-service", Path: "/pagos"})

	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, ConnectionError, callErr.Kind)
	assert.True(t, errors.Is(err, util.ErrBackendUnavail))
	assert.Equal(t, http.StatusBadGateway, util.StatusFromError(err))

	_, err = c.Call(context.Background(), Request{Service: "desconocido"})
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, ConnectionError, callErr.Kind)
}

func TestForwardedFrom(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://gym.local/api/clases", nil)
	req.RemoteAddr = "192.168.1.5:5555"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")

	f := ForwardedFrom(req)
	assert.Equal(t, "1.2.3.4, 192.168.1.5", f.For)
	assert.Equal(t, "gym.local", f.Host)
	assert.Equal(t, "http", f.Proto)
}

func TestJoinPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base, path, expected string
	}{
		{base: "", path: "/foo", expected: "/foo"},
		{base: "/", path: "/foo", expected: "/foo"},
		{base: "/v1/", path: "/foo", expected: "/v1/foo"},
		{base: "/v1", path: "foo", expected: "/v1/foo"},
		{base: "", path: "", expected: "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, joinPath(tt.base, tt.path))
	}
}

func TestErrorKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "connection_error", ConnectionError.String())
	assert.Equal(t, "timeout", Timeout.String())
	assert.Equal(t, "http_error", HTTPError.String())
	assert.Equal(t, "canceled", Canceled.String())
}
