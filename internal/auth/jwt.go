// Package auth provides the credential primitives of the identity service: bearer
// token issuance and verification, and password hashing.
//
// Tokens are HS256 JWTs whose only identity claim is user_id. Verification is
// stateless; there is no revocation list, so a verified unexpired token is always
// accepted. See internal/middleware/auth.go for the request-time logic that uses
// these primitives.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/identity-service/identity-service/internal/telemetry"
)

// JWTSecretEnv is the environment variable holding the token signing secret.
const JWTSecretEnv = "IDS_JWT_SECRET"

var (
	// ErrTokenExpired is returned by Verify for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned by Verify for a token with a bad signature,
	// format, algorithm, issuer, or missing identity claim.
	ErrTokenInvalid = errors.New("token invalid")
)

var (
	jwtSecret     string
	jwtSecretOnce sync.Once
	jwtSecretErr  error
)

// isDevMode reports whether the process runs in a development environment.
func isDevMode() bool {
	devMode := os.Getenv("DEV_MODE")
	return devMode == "true" || devMode == "1" || os.Getenv("GIN_MODE") == "debug"
}

// generateRandomSecret creates a cryptographically secure random secret
func generateRandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// ValidateJWTSecret resolves the process-wide signing secret once.
// In production it fails when IDS_JWT_SECRET is not set. In dev mode a random
// secret is generated and a warning is logged.
// Call this at application startup.
func ValidateJWTSecret() error {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv(JWTSecretEnv)

		if secret == "" {
			if !isDevMode() {
				jwtSecretErr = errors.New("SECURITY ERROR: " + JWTSecretEnv + " environment variable is required in production. " +
					"Generate a secure secret with: openssl rand -hex 32")
				return
			}
			secret, jwtSecretErr = generateRandomSecret()
			if jwtSecretErr != nil {
				return
			}
			slog.Warn(JWTSecretEnv + " not set; using an auto-generated secret for development. Tokens will not survive a restart.")
		} else if len(secret) < 32 {
			slog.Warn(JWTSecretEnv + " is shorter than the recommended 32 characters")
		}

		jwtSecret = secret
	})

	return jwtSecretErr
}

// GetJWTSecret returns the validated signing secret.
// Panics if the secret cannot be resolved.
func GetJWTSecret() string {
	if jwtSecret == "" {
		if err := ValidateJWTSecret(); err != nil {
			panic(err)
		}
	}
	return jwtSecret
}

// Claims is the token payload. UserID is the sole identity claim.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Identity is the verified caller carried by a token.
type Identity struct {
	UserID    string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies access tokens with a shared secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// IssuerOption configures a TokenIssuer.
type IssuerOption func(*TokenIssuer)

// WithClock replaces the time source used for iat/exp and for expiry checks.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *TokenIssuer) { i.now = now }
}

// NewTokenIssuer returns an issuer for tokens valid for ttl.
func NewTokenIssuer(secret string, ttl time.Duration, issuer string, opts ...IssuerOption) *TokenIssuer {
	i := &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// TTL returns the lifetime of issued tokens.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns a signed token for userID and its expiry.
func (i *TokenIssuer) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, errors.New("cannot issue token without a user id")
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify parses tokenString and returns the identity it carries.
// The error is ErrTokenExpired or wraps ErrTokenInvalid.
func (i *TokenIssuer) Verify(tokenString string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		telemetry.TokenVerificationsTotal.WithLabelValues("expired").Inc()
		return Identity{}, ErrTokenExpired
	case err != nil:
		telemetry.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	case claims.UserID == "":
		telemetry.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
		return Identity{}, fmt.Errorf("%w: missing user_id claim", ErrTokenInvalid)
	}

	telemetry.TokenVerificationsTotal.WithLabelValues("valid").Inc()
	return Identity{UserID: claims.UserID, ExpiresAt: claims.ExpiresAt.Time}, nil
}
