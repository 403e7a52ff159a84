// Package models - audit_log.go defines the AuditLog model for recording security-relevant
// events, capturing actor, action, affected resource, client IP, and arbitrary metadata.
package models

import "time"

// Audit actions recorded by the service.
const (
	AuditActionUserRegister       = "user.register"
	AuditActionOrganisationCreate = "organisation.create"
	AuditActionMemberAdd          = "organisation.member_add"
)

// AuditLog represents an audit log entry for tracking user actions
type AuditLog struct {
	ID             string
	UserID         *string // nil when the actor is not authenticated
	OrganisationID *string
	Action         string
	ResourceType   *string // "user", "organisation"
	ResourceID     *string
	Metadata       map[string]interface{} // JSONB
	IPAddress      *string
	CreatedAt      time.Time
}
