package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token claims the service cares about.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Validator verifies RS256 bearer tokens using keys from a KeyCache.
type Validator struct {
	keys     *KeyCache
	issuer   string
	audience string
}

// NewValidator wires a validator to an explicit key cache. issuer and
// audience are both enforced when non-empty.
func NewValidator(keys *KeyCache, issuer, audience string) *Validator {
	return &Validator{keys: keys, issuer: issuer, audience: audience}
}

// ValidateToken parses and verifies a bearer token, returning its claims.
// Expiry, issuer, audience, signature and the RS256 method are all checked;
// a token without a subject is rejected.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	keyfunc := func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token missing key ID")
		}
		return v.keys.Key(ctx, kid)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, keyfunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("auth: token missing subject")
	}

	return claims, nil
}
