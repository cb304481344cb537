package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/phrazzld/synth-api/internal/config"
	"github.com/phrazzld/synth-api/internal/platform/logger"
)

// Verifier resolves a bearer token to a stable owner identifier.
type Verifier interface {
	// Verify validates token and returns its owner.
	// Returns ErrMissingToken, ErrExpiredToken or ErrInvalidToken.
	Verify(ctx context.Context, token string) (string, error)
}

// jwtVerifier verifies tokens signed with a single algorithm and key.
type jwtVerifier struct {
	method    jwt.SigningMethod
	key       interface{}
	issuer    string
	timeFunc  func() time.Time // Injectable for testing
	clockSkew time.Duration
}

// claims carries the registered claims plus the username claim issued by
// Cognito user pools.
type claims struct {
	Username string `json:"cognito:username,omitempty"`
	jwt.RegisteredClaims
}

var _ Verifier = (*jwtVerifier)(nil)

// NewVerifier creates a Verifier from cfg. A configured RSA public key
// selects RS256 verification; otherwise tokens are HS256 signed with
// cfg.JWTSecret. When cfg.Issuer is set the iss claim must match it.
func NewVerifier(cfg config.AuthConfig) (Verifier, error) {
	v := &jwtVerifier{
		issuer:    cfg.Issuer,
		timeFunc:  time.Now,
		clockSkew: 2 * time.Minute,
	}

	switch {
	case cfg.PublicKeyPEM != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
		if err != nil {
			return nil, fmt.Errorf("invalid RSA public key: %w", err)
		}
		v.method = jwt.SigningMethodRS256
		v.key = key
	case len(cfg.JWTSecret) >= 32:
		v.method = jwt.SigningMethodHS256
		v.key = []byte(cfg.JWTSecret)
	default:
		return nil, fmt.Errorf("jwt secret must be at least 32 characters")
	}

	return v, nil
}

// Verify validates the signature and time claims of token. The owner is the
// sub claim, or cognito:username when sub is absent.
func (v *jwtVerifier) Verify(ctx context.Context, token string) (string, error) {
	log := logger.FromContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{v.method.Alg()}),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithTimeFunc(v.timeFunc),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.ParseWithClaims(
		token,
		&claims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != v.method.Alg() {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return v.key, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug("token validation failed: token expired")
			return "", ErrExpiredToken
		}
		log.Debug("token validation failed",
			"error", err,
			"error_type", fmt.Sprintf("%T", err))
		return "", ErrInvalidToken
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}

	owner := c.Subject
	if owner == "" {
		owner = c.Username
	}
	if owner == "" {
		log.Debug("token validation failed: no subject")
		return "", ErrInvalidToken
	}
	return owner, nil
}

// SignTokenForTesting creates a token for subject that expires at expiresAt,
// signed with secret. Used by tests of packages that consume a Verifier.
func SignTokenForTesting(secret, subject string, expiresAt time.Time) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}
