// Package models - organisation.go defines the Organisation tenant model and its
// membership edge.
package models

import (
	"fmt"
	"time"
)

// Organisation is a named group of member users.
type Organisation struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// OrganisationView is the response shape for an organisation.
type OrganisationView struct {
	OrgID       string `json:"orgId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// View returns the response shape of o.
func (o *Organisation) View() OrganisationView {
	return OrganisationView{
		OrgID:       o.ID,
		Name:        o.Name,
		Description: o.Description,
	}
}

// OrganisationMember is the membership edge between a user and an organisation.
// The pair (OrganisationID, UserID) is unique.
type OrganisationMember struct {
	OrganisationID string    `db:"organisation_id"`
	UserID         string    `db:"user_id"`
	CreatedAt      time.Time `db:"created_at"`
}

// BootstrapOrganisationName is the name of the organisation created for a user at registration.
func BootstrapOrganisationName(firstName string) string {
	return fmt.Sprintf("%s's Organisation", firstName)
}
