// audit.go provides Gin middleware that records successful authenticated mutations
// to the audit log.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/identity-service/identity-service/internal/db/models"
)

const (
	// AuditOrganisationKey is set by handlers to the organisation a mutation touched.
	AuditOrganisationKey = "audit_organisation_id"
	// AuditResourceKey is set by handlers to the id of the resource a mutation created or changed.
	AuditResourceKey = "audit_resource_id"
)

// AuditRecorder receives audit entries. Record must not block.
type AuditRecorder interface {
	Record(entry *models.AuditLog)
}

type auditRoute struct {
	action       string
	resourceType string
}

// auditedRoutes maps "METHOD route-template" to the action recorded for it.
var auditedRoutes = map[string]auditRoute{
	http.MethodPost + " /api/organisations":              {models.AuditActionOrganisationCreate, "organisation"},
	http.MethodPost + " /api/organisations/:orgId/users": {models.AuditActionMemberAdd, "user"},
}

// AuditMiddleware records a successful (2xx) request to an audited route after the
// handler has run. Reads, failures, and unaudited routes are skipped.
func AuditMiddleware(recorder AuditRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if recorder == nil {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		route, ok := auditedRoutes[c.Request.Method+" "+c.FullPath()]
		if !ok {
			return
		}

		entry := &models.AuditLog{
			Action:       route.action,
			ResourceType: optional(route.resourceType),
			IPAddress:    optional(c.ClientIP()),
			UserID:       optional(c.GetString(UserIDKey)),
			Metadata: map[string]interface{}{
				"status_code": status,
				"request_id":  c.GetString(RequestIDKey),
			},
		}
		entry.OrganisationID = optional(c.GetString(AuditOrganisationKey))
		entry.ResourceID = optional(c.GetString(AuditResourceKey))

		recorder.Record(entry)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
