// Package services implements the account, user, and organisation operations of the
// identity service. Each operation validates its input, asks the authorization engine
// whether the caller may proceed, and then coordinates the repositories.
//
// Services take the caller's identity as an explicit argument. They never read
// request state, which keeps every rule testable without an HTTP stack.
package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/identity-service/identity-service/internal/db/models"
)

var (
	// ErrNotFound is returned when a referenced user or organisation does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials is returned by Login for an unknown email, a wrong
	// password, or an incomplete request. The cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// AccountStore writes the records of a new account.
type AccountStore interface {
	RegisterWithOrganisation(ctx context.Context, user *models.User, org *models.Organisation) error
}

// UserStore reads users. Lookups return (nil, nil) for a missing user.
type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// OrganisationStore reads and writes organisations and their membership.
// Lookups return (nil, nil) for a missing organisation.
type OrganisationStore interface {
	CreateWithMember(ctx context.Context, org *models.Organisation, userID string) error
	GetByID(ctx context.Context, id string) (*models.Organisation, error)
	AddMember(ctx context.Context, orgID, userID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Organisation, error)
	ListMembers(ctx context.Context, orgID string) ([]*models.User, error)
}

// AuditRecorder receives audit entries. Implementations must not block.
type AuditRecorder interface {
	Record(entry *models.AuditLog)
}

// validID reports whether id can name a stored record. Ids that cannot are
// treated as missing without a database round trip.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func strPtr(s string) *string { return &s }
