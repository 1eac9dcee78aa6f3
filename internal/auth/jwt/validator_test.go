package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

const (
	testIssuer = "http://keycloak.test/realms/gimnasio"
	testKeyID  = "test-key-id"
)

type testKeys struct {
	private jwk.Key
	public  jwk.Set
}

func newTestKeys(t *testing.T) testKeys {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	priv, err := jwk.FromRaw(privateKey)
	require.NoError(t, err)
	require.NoError(t, priv.Set(jwk.KeyIDKey, testKeyID))
	require.NoError(t, priv.Set(jwk.AlgorithmKey, jwa.RS256))

	pub, err := jwk.FromRaw(privateKey.Public())
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, testKeyID))
	require.NoError(t, pub.Set(jwk.AlgorithmKey, jwa.RS256))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	return testKeys{private: priv, public: set}
}

func (k testKeys) sign(t *testing.T, build func(b *jwt.Builder) *jwt.Builder) string {
	t.Helper()

	now := time.Now()
	b := jwt.NewBuilder().
		Issuer(testIssuer).
		Subject("user-1").
		IssuedAt(now).
		Expiration(now.Add(time.Hour))
	if build != nil {
		b = build(b)
	}
	tok, err := b.Build()
	require.NoError(t, err)

	hdrs := jws.NewHeaders()
	require.NoError(t, hdrs.Set(jws.KeyIDKey, testKeyID))

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, k.private, jws.WithProtectedHeaders(hdrs)))
	require.NoError(t, err)
	return string(signed)
}

func withRoles(roles ...string) func(b *jwt.Builder) *jwt.Builder {
	return func(b *jwt.Builder) *jwt.Builder {
		return b.Claim("realm_access", map[string]any{"roles": roles})
	}
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Enabled:    true,
		Issuer:     testIssuer,
		ClockSkew:  config.Duration(30 * time.Second),
		RoleClaim:  DefaultRoleClaim,
		Algorithms: []string{"RS256"},
	}
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	v, err := NewValidator(context.Background(), testJWTConfig(), WithKeySet(keys.public))
	require.NoError(t, err)

	token := keys.sign(t, withRoles("ADMIN", "STAFF"))
	principal, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", principal.Subject)
	assert.True(t, principal.HasRole("ADMIN"))
	assert.True(t, principal.HasAnyRole("MIEMBRO", "STAFF"))
	assert.False(t, principal.HasRole("MIEMBRO"))
	assert.Equal(t, []string{"ADMIN", "STAFF"}, principal.RoleList())
}

func TestValidator_NoRolesClaim(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	v, err := NewValidator(context.Background(), testJWTConfig(), WithKeySet(keys.public))
	require.NoError(t, err)

	principal, err := v.Validate(context.Background(), keys.sign(t, nil))
	require.NoError(t, err)
	assert.Empty(t, principal.Roles)
}

func TestValidator_Rejects(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	other := newTestKeys(t)

	cfg := testJWTConfig()
	cfg.Audience = []string{"gym-gateway"}
	v, err := NewValidator(context.Background(), cfg, WithKeySet(keys.public))
	require.NoError(t, err)

	withAud := func(b *jwt.Builder) *jwt.Builder { return b.Audience([]string{"gym-gateway"}) }

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{
			name: "expired",
			token: keys.sign(t, func(b *jwt.Builder) *jwt.Builder {
				return withAud(b).Expiration(time.Now().Add(-time.Hour))
			}),
		},
		{
			name: "wrong issuer",
			token: keys.sign(t, func(b *jwt.Builder) *jwt.Builder {
				return withAud(b).Issuer("http://evil.test")
			}),
		},
		{name: "wrong audience", token: keys.sign(t, nil)},
		{name: "foreign key", token: other.sign(t, withAud)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			principal, err := v.Validate(context.Background(), tt.token)
			require.Error(t, err)
			assert.Nil(t, principal)
			assert.True(t, errors.Is(err, util.ErrUnauthenticated))
			assert.Equal(t, http.StatusUnauthorized, util.StatusFromError(err))
		})
	}

	_, err = v.Validate(context.Background(), keys.sign(t, withAud))
	assert.NoError(t, err)
}

func TestValidator_ClockSkew(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	token := keys.sign(t, func(b *jwt.Builder) *jwt.Builder {
		return b.Expiration(time.Now().Add(-10 * time.Second))
	})

	v, err := NewValidator(context.Background(), testJWTConfig(), WithKeySet(keys.public))
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), token)
	assert.NoError(t, err)

	later := func() time.Time { return time.Now().Add(time.Minute) }
	v, err = NewValidator(context.Background(), testJWTConfig(), WithKeySet(keys.public), WithClock(later))
	require.NoError(t, err)
	_, err = v.Validate(context.Background(), token)
	assert.Error(t, err)
}

func TestValidator_AlgorithmNotAllowed(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	cfg := testJWTConfig()
	cfg.Algorithms = []string{"ES256"}
	v, err := NewValidator(context.Background(), cfg, WithKeySet(keys.public))
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), keys.sign(t, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "algorithm RS256 not allowed")
}

func TestNewValidator_JWKSFile(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	data, err := json.Marshal(keys.public)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "jwks.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg := testJWTConfig()
	cfg.JWKSFile = path
	v, err := NewValidator(context.Background(), cfg)
	require.NoError(t, err)

	principal, err := v.Validate(context.Background(), keys.sign(t, withRoles("MIEMBRO")))
	require.NoError(t, err)
	assert.True(t, principal.HasRole("MIEMBRO"))
}

func TestNewValidator_JWKSURL(t *testing.T) {
	t.Parallel()

	keys := newTestKeys(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(keys.public)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testJWTConfig()
	cfg.JWKSURL = server.URL
	v, err := NewValidator(ctx, cfg, WithHTTPClient(server.Client()))
	require.NoError(t, err)

	principal, err := v.Validate(ctx, keys.sign(t, withRoles("STAFF")))
	require.NoError(t, err)
	assert.True(t, principal.HasRole("STAFF"))
}

func TestNewValidator_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewValidator(context.Background(), testJWTConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeySetUnavailable))

	cfg := testJWTConfig()
	cfg.JWKSFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = NewValidator(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeySetUnavailable))
}
