package jwtutil

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mikews93/deusrex-sub000/internal/apperr"
	"github.com/mikews93/deusrex-sub000/pkg/config"
)

var cfg *config.JWTConfig

// Initialize sets the JWT configuration for the package
func Initialize(jwtConfig *config.JWTConfig) {
	cfg = jwtConfig
}

// Claims represents the verified token claims consumed by the identity
// resolver. The organization external id may arrive under either the org_id
// or the organization_id claim key; ExternalOrgID resolves the two. Claims
// not listed here are preserved in Extra as an opaque pass-through map.
type Claims struct {
	Email           string `json:"email,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	OrgID           string `json:"org_id,omitempty"`
	OrganizationID  string `json:"organization_id,omitempty"`
	AuthorizedParty string `json:"azp,omitempty"`
	jwt.RegisteredClaims

	Extra map[string]any `json:"-"`
}

// ExternalOrgID returns the organization external id claimed by the token,
// accepting both supported claim keys.
func (c *Claims) ExternalOrgID() string {
	if c.OrgID != "" {
		return c.OrgID
	}
	return c.OrganizationID
}

// FromAuthHeader extracts the raw token from an Authorization header value.
// A missing header or a non-Bearer scheme is a MissingToken condition,
// distinct from a token that fails verification.
func FromAuthHeader(header string) (string, error) {
	if header == "" {
		return "", apperr.New(apperr.EMissingToken, "missing authorization token")
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", apperr.New(apperr.EMissingToken, "invalid authorization format, expected Bearer token")
	}
	return parts[1], nil
}

// VerifyToken validates the raw token and returns its claims. Verification
// is attempted against the primary signing key first; a signature failure
// (and only that class of failure) is retried against the secondary key, so
// tokens minted under either signing configuration are accepted. The final
// error aggregates both attempts without ever carrying token contents.
func VerifyToken(tokenString string) (*Claims, error) {
	if cfg == nil || cfg.SigningKey == "" {
		return nil, apperr.New(apperr.EConfiguration, "jwt signing key is not configured")
	}
	if len(cfg.AuthorizedParties) == 0 {
		return nil, apperr.New(apperr.EConfiguration, "jwt authorized parties are not configured")
	}

	keys := [][]byte{[]byte(cfg.SigningKey)}
	if cfg.SecondarySigningKey != "" {
		keys = append(keys, []byte(cfg.SecondarySigningKey))
	}

	var claims *Claims
	var attempts []error
	for i, key := range keys {
		parsed, err := parseWithKey(tokenString, key)
		if err == nil {
			claims = parsed
			break
		}
		attempts = append(attempts, fmt.Errorf("key %d: %w", i+1, err))
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			// Not a wrong-key failure; retrying with another key cannot help.
			break
		}
	}
	if claims == nil {
		return nil, apperr.Wrap(apperr.EInvalidToken, errors.Join(attempts...), "token verification failed")
	}

	if !isAuthorizedParty(claims) {
		return nil, apperr.New(apperr.EInvalidToken, "token authorized party is not accepted")
	}

	claims.Extra = extraClaims(tokenString)
	return claims, nil
}

func parseWithKey(tokenString string, key []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		},
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func isAuthorizedParty(claims *Claims) bool {
	for _, party := range cfg.AuthorizedParties {
		if claims.AuthorizedParty == party {
			return true
		}
		for _, aud := range claims.Audience {
			if aud == party {
				return true
			}
		}
	}
	return false
}

// knownClaimKeys are the claims decoded into typed fields; everything else
// in the payload is pass-through.
var knownClaimKeys = map[string]struct{}{
	"email": {}, "first_name": {}, "last_name": {}, "avatar_url": {},
	"org_id": {}, "organization_id": {}, "azp": {},
	"iss": {}, "sub": {}, "aud": {}, "exp": {}, "nbf": {}, "iat": {}, "jti": {},
}

func extraClaims(tokenString string) map[string]any {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	var all map[string]any
	if err := json.Unmarshal(payload, &all); err != nil {
		return nil
	}
	for key := range knownClaimKeys {
		delete(all, key)
	}
	if len(all) == 0 {
		return nil
	}
	return all
}

// GenerateToken creates a token under the primary signing key. Used by the
// bootstrap login endpoint; external clients normally mint their own tokens.
func GenerateToken(subject, email, orgExternalID, firstName, lastName string) (string, error) {
	if cfg == nil || cfg.SigningKey == "" {
		return "", apperr.New(apperr.EConfiguration, "jwt signing key is not configured")
	}
	if len(cfg.AuthorizedParties) == 0 {
		return "", apperr.New(apperr.EConfiguration, "jwt authorized parties are not configured")
	}

	claims := Claims{
		Email:           email,
		FirstName:       firstName,
		LastName:        lastName,
		OrgID:           orgExternalID,
		AuthorizedParty: cfg.AuthorizedParties[0],
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(cfg.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.SigningKey))
}
