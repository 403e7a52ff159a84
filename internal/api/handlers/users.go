package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/identity-service/identity-service/internal/api/response"
	"github.com/identity-service/identity-service/internal/authz"
	"github.com/identity-service/identity-service/internal/middleware"
	"github.com/identity-service/identity-service/internal/services"
)

// UserHandlers handles user profile endpoints
type UserHandlers struct {
	users *services.UserService
}

// NewUserHandlers creates a new UserHandlers instance
func NewUserHandlers(users *services.UserService) *UserHandlers {
	return &UserHandlers{users: users}
}

// GetUserHandler returns a user's public profile
// GET /api/users/:userId
func (h *UserHandlers) GetUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := h.users.Get(c.Request.Context(), middleware.IdentityFrom(c), c.Param("userId"))
		if errors.Is(err, authz.ErrForbidden) {
			response.Fail(c, http.StatusForbidden, "You do not have the permission to retrieve this user")
			return
		}
		if err != nil {
			writeError(c, err, http.StatusInternalServerError, "Failed to retrieve user")
			return
		}

		response.OK(c, http.StatusOK, "User successfully retrieved", user.Summary())
	}
}
