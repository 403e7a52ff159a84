// Package middleware provides Gin HTTP middleware for authentication, rate limiting,
// security headers, request ids, metrics, and audit logging.
//
// Middleware ordering is enforced in router.go:
//
//	Recovery → RequestID → Metrics → Logger → CORS → Security → RateLimit → Auth → Audit → Handler
//
// Security headers run before auth so they appear on 401 responses too. Rate
// limiting runs before auth on the /auth routes so brute-force attempts are
// rejected before any password hashing. Auth only establishes who the caller is;
// what the caller may do is decided per operation by internal/authz.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/identity-service/identity-service/internal/api/response"
	"github.com/identity-service/identity-service/internal/auth"
)

const (
	// UserIDKey holds the authenticated user id as a string.
	UserIDKey = "user_id"
	// identityKey holds the full auth.Identity.
	identityKey = "identity"
)

// TokenVerifier verifies a bearer token.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, error)
}

// AuthMiddleware requires a valid bearer token. On success the caller's identity
// is stored in the context; read it with IdentityFrom.
func AuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "Authentication credentials were not provided")
			return
		}

		id, err := tokens.Verify(token)
		if err != nil {
			msg := "Invalid token"
			if errors.Is(err, auth.ErrTokenExpired) {
				msg = "Token has expired"
			}
			response.Abort(c, http.StatusUnauthorized, msg)
			return
		}

		c.Set(identityKey, id)
		c.Set(UserIDKey, id.UserID)
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// IdentityFrom returns the identity stored by AuthMiddleware, or the zero Identity
// on routes that do not require authentication.
func IdentityFrom(c *gin.Context) auth.Identity {
	if v, ok := c.Get(identityKey); ok {
		if id, ok := v.(auth.Identity); ok {
			return id
		}
	}
	return auth.Identity{}
}
