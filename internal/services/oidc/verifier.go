package oidc

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/studydesk/api/internal/models"
)

// Verifier checks token signatures against a JWKS and pins the issuer.
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
}

// NewVerifier creates a verifier for one issuer.
func NewVerifier(jwksManager *JWKSManager, issuer string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      issuer,
	}
}

// Verify validates the token (signature, time claims, issuer) and returns its
// claims.
func (v *Verifier) Verify(ctx context.Context, tokenString string, jwksURL string) (*models.JWTClaims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString), jwt.WithKeySet(keys), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	iss := stringClaim(token, "iss")
	if iss == "" {
		return nil, fmt.Errorf("token missing issuer claim")
	}
	if iss != v.issuer {
		return nil, fmt.Errorf("token issuer mismatch: expected %s, got %s", v.issuer, iss)
	}

	return &models.JWTClaims{
		Sub:   stringClaim(token, "sub"),
		Email: stringClaim(token, "email"),
		Name:  stringClaim(token, "name"),
		Exp:   intClaim(token, "exp"),
		Iat:   intClaim(token, "iat"),
		Iss:   iss,
		Aud:   audienceClaim(token),
	}, nil
}

func stringClaim(token jwt.Token, name string) string {
	if v, ok := token.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// intClaim reads a numeric-date claim; jwx hands registered time claims back
// as time.Time and unregistered ones as float64.
func intClaim(token jwt.Token, name string) int64 {
	v, ok := token.Get(name)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case time.Time:
		return t.Unix()
	case float64:
		return int64(t)
	}
	return 0
}

// audienceClaim handles both the string and array encodings of aud, keeping
// the first entry of an array.
func audienceClaim(token jwt.Token) string {
	v, ok := token.Get("aud")
	if !ok {
		return ""
	}
	switch aud := v.(type) {
	case string:
		return aud
	case []any:
		if len(aud) > 0 {
			if s, ok := aud[0].(string); ok {
				return s
			}
		}
	case []string:
		if len(aud) > 0 {
			return aud[0]
		}
	}
	return ""
}
