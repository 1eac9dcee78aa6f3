package jwt

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/observability"
)

// TokenValidator turns a raw bearer token into a Principal.
type TokenValidator interface {
	// Validate checks the token and returns the caller it identifies.
	Validate(ctx context.Context, token string) (*Principal, error)
}

// Validator validates JWTs against a JSON Web Key Set.
type Validator struct {
	config     config.JWTConfig
	keySet     jwk.Set
	logger     observability.Logger
	httpClient *http.Client
	now        func() time.Time
}

// ValidatorOption is a functional option for configuring the validator.
type ValidatorOption func(*Validator)

// WithValidatorLogger sets the logger for the validator.
func WithValidatorLogger(logger observability.Logger) ValidatorOption {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithKeySet uses a fixed key set instead of the configured source.
func WithKeySet(set jwk.Set) ValidatorOption {
	return func(v *Validator) {
		v.keySet = set
	}
}

// WithHTTPClient sets the client used to fetch the remote key set.
func WithHTTPClient(client *http.Client) ValidatorOption {
	return func(v *Validator) {
		v.httpClient = client
	}
}

// WithClock overrides the time source used for exp and nbf checks.
func WithClock(now func() time.Time) ValidatorOption {
	return func(v *Validator) {
		v.now = now
	}
}

// NewValidator creates a validator. Unless a key set is supplied with
// WithKeySet, keys are read from cfg.JWKSFile or fetched from
// cfg.JWKSURL and refreshed every cfg.RefreshInterval in the
// background for the lifetime of ctx. A remote key set that cannot be
// fetched at startup is retried on first use.
func NewValidator(ctx context.Context, cfg config.JWTConfig, opts ...ValidatorOption) (*Validator, error) {
	v := &Validator{
		config:     cfg,
		logger:     observability.NopLogger(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.keySet != nil {
		return v, nil
	}

	switch {
	case cfg.JWKSFile != "":
		set, err := jwk.ReadFile(cfg.JWKSFile)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read %s: %w", ErrKeySetUnavailable, cfg.JWKSFile, err)
		}
		v.keySet = set
	case cfg.JWKSURL != "":
		set, err := v.remoteKeySet(ctx)
		if err != nil {
			return nil, err
		}
		v.keySet = set
	default:
		return nil, fmt.Errorf("%w: no jwksUrl or jwksFile configured", ErrKeySetUnavailable)
	}

	return v, nil
}

func (v *Validator) remoteKeySet(ctx context.Context) (jwk.Set, error) {
	url := v.config.JWKSURL
	cache := jwk.NewCache(ctx)
	err := cache.Register(url,
		jwk.WithHTTPClient(v.httpClient),
		jwk.WithRefreshInterval(v.config.RefreshInterval.OrDefault(config.DefaultJWKSRefresh)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to register %s: %w", ErrKeySetUnavailable, url, err)
	}

	if _, err := cache.Refresh(ctx, url); err != nil {
		v.logger.Warn("initial JWKS fetch failed, will retry on demand",
			observability.String("url", url),
			observability.Error(err),
		)
	} else {
		v.logger.Info("JWKS loaded", observability.String("url", url))
	}

	return jwk.NewCachedSet(cache, url), nil
}

// Validate verifies the signature and the registered claims of token
// and extracts the principal's roles from the configured role claim.
func (v *Validator) Validate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, NewValidationError("token rejected", ErrEmptyToken)
	}

	if err := v.checkAlgorithm(token); err != nil {
		return nil, err
	}

	parseOpts := []jwt.ParseOption{
		jwt.WithKeySet(v.keySet),
		jwt.WithValidate(true),
		jwt.WithAcceptableSkew(v.config.ClockSkew.Duration()),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	}
	if v.config.Issuer != "" {
		parseOpts = append(parseOpts, jwt.WithIssuer(v.config.Issuer))
	}

	parsed, err := jwt.Parse([]byte(token), parseOpts...)
	if err != nil {
		v.logger.Debug("token rejected", observability.Error(err))
		return nil, NewValidationError("token rejected", fmt.Errorf("%w: %w", ErrTokenInvalid, err))
	}

	if len(v.config.Audience) > 0 && !audienceMatches(parsed.Audience(), v.config.Audience) {
		return nil, NewValidationError("token rejected", ErrTokenInvalidAudience)
	}

	claims, err := parsed.AsMap(ctx)
	if err != nil {
		return nil, NewValidationError("failed to read claims", err)
	}

	return &Principal{
		Subject: parsed.Subject(),
		Roles:   ExtractRoles(claims, v.config.RoleClaim),
	}, nil
}

func (v *Validator) checkAlgorithm(token string) error {
	if len(v.config.Algorithms) == 0 {
		return nil
	}
	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return NewValidationError("token rejected", fmt.Errorf("%w: %w", ErrTokenInvalid, err))
	}
	for _, sig := range msg.Signatures() {
		alg := sig.ProtectedHeaders().Algorithm().String()
		if !slices.Contains(v.config.Algorithms, alg) {
			return NewValidationError("token rejected",
				fmt.Errorf("%w: algorithm %s not allowed", ErrTokenInvalid, alg))
		}
	}
	return nil
}

// audienceMatches reports whether any token audience is accepted.
func audienceMatches(tokenAud, accepted []string) bool {
	for _, aud := range tokenAud {
		if slices.Contains(accepted, aud) {
			return true
		}
	}
	return false
}
