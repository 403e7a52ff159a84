package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/identity-service/identity-service/internal/api/response"
	"github.com/identity-service/identity-service/internal/db/models"
	"github.com/identity-service/identity-service/internal/middleware"
	"github.com/identity-service/identity-service/internal/services"
)

// OrganisationHandlers handles organisation and membership endpoints
type OrganisationHandlers struct {
	orgs *services.OrganisationService
}

// NewOrganisationHandlers creates a new OrganisationHandlers instance
func NewOrganisationHandlers(orgs *services.OrganisationService) *OrganisationHandlers {
	return &OrganisationHandlers{orgs: orgs}
}

// CreateOrganisationHandler creates an organisation with the caller as member
// POST /api/organisations
func (h *OrganisationHandlers) CreateOrganisationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.CreateOrganisationInput
		if !bindJSON(c, &in, "Client error") {
			return
		}

		org, err := h.orgs.Create(c.Request.Context(), middleware.IdentityFrom(c), in)
		if err != nil {
			writeError(c, err, http.StatusBadRequest, "Client error")
			return
		}

		c.Set(middleware.AuditOrganisationKey, org.ID)
		c.Set(middleware.AuditResourceKey, org.ID)
		response.OK(c, http.StatusCreated, "Organisation created successfully", org.View())
	}
}

// ListOrganisationsHandler lists the caller's organisations
// GET /api/organisations
func (h *OrganisationHandlers) ListOrganisationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgs, err := h.orgs.List(c.Request.Context(), middleware.IdentityFrom(c))
		if err != nil {
			writeError(c, err, http.StatusInternalServerError, "Failed to list organisations")
			return
		}

		views := make([]models.OrganisationView, len(orgs))
		for i, o := range orgs {
			views[i] = o.View()
		}
		response.OK(c, http.StatusOK, "Organisations in which you are a member of, successfully retrieved", views)
	}
}

// GetOrganisationHandler returns one organisation the caller belongs to
// GET /api/organisations/:orgId
func (h *OrganisationHandlers) GetOrganisationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		org, err := h.orgs.Get(c.Request.Context(), middleware.IdentityFrom(c), c.Param("orgId"))
		if err != nil {
			writeError(c, err, http.StatusInternalServerError, "Failed to retrieve organisation")
			return
		}

		response.OK(c, http.StatusOK, "Organisation successfully retrieved", org.View())
	}
}

// AddMemberHandler adds a user to an organisation
// POST /api/organisations/:orgId/users
func (h *OrganisationHandlers) AddMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.Param("orgId")
		bind := func(in *services.AddMemberInput) error { return decodeJSON(c, in) }
		user, err := h.orgs.AddMemberFrom(c.Request.Context(), middleware.IdentityFrom(c), orgID, bind)
		if err != nil {
			writeError(c, err, http.StatusInternalServerError, "Failed to add user to organisation")
			return
		}

		c.Set(middleware.AuditOrganisationKey, orgID)
		c.Set(middleware.AuditResourceKey, user.ID)
		response.OK(c, http.StatusOK, "User added to organisation successfully", nil)
	}
}

// ListMembersHandler lists the members of an organisation the caller belongs to
// GET /api/organisations/:orgId/users
func (h *OrganisationHandlers) ListMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := h.orgs.ListMembers(c.Request.Context(), middleware.IdentityFrom(c), c.Param("orgId"))
		if err != nil {
			writeError(c, err, http.StatusInternalServerError, "Failed to list organisation members")
			return
		}

		summaries := make([]models.UserSummary, len(users))
		for i, u := range users {
			summaries[i] = u.Summary()
		}
		response.OK(c, http.StatusOK, "Organisation members successfully retrieved", summaries)
	}
}
