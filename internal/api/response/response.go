// Package response writes the JSON envelopes shared by handlers and middleware.
//
//	success:    {"status":"success","message":...,"data":...}
//	error:      {"status":...,"message":...,"statusCode":...}
//	validation: {"errors":[{"field":...,"message":...}]}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/identity-service/identity-service/internal/validation"
)

// Success is the envelope for 2xx responses.
type Success struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error is the envelope for non-validation failures.
type Error struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// Validation is the envelope for 422 field errors.
type Validation struct {
	Errors validation.Errors `json:"errors"`
}

// statusLabels are the short labels written to Error.Status.
var statusLabels = map[int]string{
	http.StatusBadRequest:          "Bad request",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not found",
	http.StatusTooManyRequests:     "Too many requests",
	http.StatusInternalServerError: "Internal server error",
	http.StatusServiceUnavailable:  "Service unavailable",
}

func label(code int) string {
	if l, ok := statusLabels[code]; ok {
		return l
	}
	return http.StatusText(code)
}

// OK writes a success envelope.
func OK(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Success{Status: "success", Message: message, Data: data})
}

// Fail writes an error envelope.
func Fail(c *gin.Context, code int, message string) {
	c.JSON(code, Error{Status: label(code), Message: message, StatusCode: code})
}

// Abort writes an error envelope and stops the handler chain.
func Abort(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Error{Status: label(code), Message: message, StatusCode: code})
}

// Invalid writes a 422 validation envelope.
func Invalid(c *gin.Context, errs validation.Errors) {
	c.JSON(http.StatusUnprocessableEntity, Validation{Errors: errs})
}
