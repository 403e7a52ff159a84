// Package handlers implements the HTTP endpoints of the identity service. Handlers
// decode the request, hand the caller's identity and payload to a service, and map
// the result onto the response envelopes. They hold no business rules.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/identity-service/identity-service/internal/api/response"
	"github.com/identity-service/identity-service/internal/authz"
	"github.com/identity-service/identity-service/internal/db/repositories"
	"github.com/identity-service/identity-service/internal/middleware"
	"github.com/identity-service/identity-service/internal/services"
	"github.com/identity-service/identity-service/internal/validation"
)

const (
	duplicateEmailMessage = "user with this email already exists."
	malformedBodyMessage  = "Client error"
	forbiddenMessage      = "You do not have permission to perform this action"
	notFoundMessage       = "Not found"
	unauthenticatedMsg    = "Authentication credentials were not provided"
)

// errMalformedBody marks a request body that is not valid JSON.
var errMalformedBody = errors.New("malformed request body")

// decodeJSON decodes the request body into dst. An empty body decodes as an empty
// object so that missing fields are reported as field errors. A JSON type mismatch
// is returned as validation.Errors and any other decode failure as errMalformedBody.
func decodeJSON(c *gin.Context, dst interface{}) error {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	if errs, ok := validation.FromDecodeError(err); ok {
		return errs
	}
	return fmt.Errorf("%w: %v", errMalformedBody, err)
}

// bindJSON is decodeJSON for handlers that decode before calling a service. A
// malformed body is answered with a 400 carrying badRequestMessage. It returns
// false when a response has been written.
func bindJSON(c *gin.Context, dst interface{}, badRequestMessage string) bool {
	err := decodeJSON(c, dst)
	if err == nil {
		return true
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		response.Invalid(c, errs)
		return false
	}
	response.Fail(c, http.StatusBadRequest, badRequestMessage)
	return false
}

// writeError maps a service error onto a response. Errors outside the known
// taxonomy are logged and answered with fallbackCode and fallbackMessage so that
// internals never reach the client.
func writeError(c *gin.Context, err error, fallbackCode int, fallbackMessage string) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		response.Invalid(c, verrs)
	case errors.Is(err, repositories.ErrDuplicateEmail):
		response.Invalid(c, validation.Errors{{Field: "email", Message: duplicateEmailMessage}})
	case errors.Is(err, services.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, "Authentication failed")
	case errors.Is(err, authz.ErrUnauthenticated):
		response.Fail(c, http.StatusUnauthorized, unauthenticatedMsg)
	case errors.Is(err, authz.ErrForbidden):
		response.Fail(c, http.StatusForbidden, forbiddenMessage)
	case errors.Is(err, errMalformedBody):
		response.Fail(c, http.StatusBadRequest, malformedBodyMessage)
	case errors.Is(err, services.ErrNotFound):
		response.Fail(c, http.StatusNotFound, notFoundMessage)
	default:
		middleware.Logger(c).Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		response.Fail(c, fallbackCode, fallbackMessage)
	}
}
