package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the HTTP header used to propagate the request identifier.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key under which the request ID is stored.
	RequestIDKey = "request_id"

	maxRequestIDLength = 128
)

// RequestIDMiddleware ensures every request carries an identifier, echoed in the
// X-Request-ID response header and stored under RequestIDKey.
//
// An inbound X-Request-ID from a load balancer or caller is reused when it is
// short printable ASCII; anything else is replaced by a new UUID so the value is
// safe to write into logs.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// Logger returns the default logger annotated with the request id.
func Logger(c *gin.Context) *slog.Logger {
	if id := c.GetString(RequestIDKey); id != "" {
		return slog.Default().With("request_id", id)
	}
	return slog.Default()
}
