// Package jwt validates bearer tokens issued by the identity provider
// and turns them into a Principal carrying the caller's realm roles.
//
// Tokens are verified with lestrrat-go/jwx against a JSON Web Key Set
// that is either fetched from the issuer (and refreshed in the
// background) or read from a local file.
//
// # Usage
//
//	v, err := jwt.NewValidator(ctx, cfg.Spec.Authentication.JWT,
//	    jwt.WithValidatorLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	token, err := jwt.NewHeaderExtractor("", "").Extract(r)
//	principal, err := v.Validate(ctx, token)
//	if principal.HasAnyRole("ADMIN", "STAFF") {
//	    // ...
//	}
package jwt
