package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/identity-service/identity-service/internal/api/response"
	"github.com/identity-service/identity-service/internal/services"
)

// AuthHandlers handles registration and login
type AuthHandlers struct {
	accounts *services.AccountService
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(accounts *services.AccountService) *AuthHandlers {
	return &AuthHandlers{accounts: accounts}
}

// RegisterHandler creates an account and its bootstrap organisation
// POST /auth/register
func (h *AuthHandlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.RegisterInput
		if !bindJSON(c, &in, "Registration unsuccessful") {
			return
		}

		res, err := h.accounts.Register(c.Request.Context(), in, c.ClientIP())
		if err != nil {
			writeError(c, err, http.StatusBadRequest, "Registration unsuccessful")
			return
		}

		response.OK(c, http.StatusCreated, "Registration successful", res)
	}
}

// LoginHandler exchanges credentials for an access token
// POST /auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.LoginInput
		// Any undecodable body is a failed login, not a 400.
		if err := c.ShouldBindJSON(&in); err != nil {
			in = services.LoginInput{}
		}

		res, err := h.accounts.Login(c.Request.Context(), in)
		if err != nil {
			writeError(c, err, http.StatusInternalServerError, "Authentication failed")
			return
		}

		response.OK(c, http.StatusOK, "Login successful", res)
	}
}
