// organisation_repository.go implements OrganisationRepository, the membership graph:
// organisations, the user-organisation edge, and the queries the authorization layer
// asks of it.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/identity-service/identity-service/internal/db/models"
	"github.com/jmoiron/sqlx"
)

const organisationColumns = `o.id, o.name, o.description, o.created_at, o.updated_at`

// OrganisationRepository handles organisation and membership database operations
type OrganisationRepository struct {
	db *sqlx.DB
}

// NewOrganisationRepository creates a new OrganisationRepository
func NewOrganisationRepository(db *sqlx.DB) *OrganisationRepository {
	return &OrganisationRepository{db: db}
}

func insertOrganisation(ctx context.Context, ex sqlx.ExecerContext, org *models.Organisation) error {
	now := time.Now().UTC()
	org.ID = uuid.New().String()
	org.CreatedAt = now
	org.UpdatedAt = now

	query := `
		INSERT INTO organisations (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := ex.ExecContext(ctx, query, org.ID, org.Name, org.Description, org.CreatedAt, org.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create organisation: %w", err)
	}
	return nil
}

// insertMember adds the (orgID, userID) edge. An existing edge is left untouched
// and reported as added=false.
func insertMember(ctx context.Context, ex sqlx.ExecerContext, orgID, userID string) (bool, error) {
	query := `
		INSERT INTO organisation_members (organisation_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (organisation_id, user_id) DO NOTHING
	`
	res, err := ex.ExecContext(ctx, query, orgID, userID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("failed to add organisation member: %w", translateError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to add organisation member: %w", err)
	}
	return n > 0, nil
}

// CreateWithMember creates org and adds userID as its first member in one transaction.
func (r *OrganisationRepository) CreateWithMember(ctx context.Context, org *models.Organisation, userID string) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertOrganisation(ctx, tx, org); err != nil {
			return err
		}
		_, err := insertMember(ctx, tx, org.ID, userID)
		return err
	})
}

// GetByID retrieves an organisation by ID
func (r *OrganisationRepository) GetByID(ctx context.Context, id string) (*models.Organisation, error) {
	var org models.Organisation
	query := `SELECT ` + organisationColumns + ` FROM organisations o WHERE o.id = $1`
	err := r.db.GetContext(ctx, &org, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organisation: %w", err)
	}
	return &org, nil
}

// AddMember adds userID to orgID. Adding an existing member is a no-op; added
// reports whether a new edge was written. ErrReferenceNotFound is returned when
// either side does not exist.
func (r *OrganisationRepository) AddMember(ctx context.Context, orgID, userID string) (added bool, err error) {
	return insertMember(ctx, r.db, orgID, userID)
}

// IsMember reports whether userID belongs to orgID.
func (r *OrganisationRepository) IsMember(ctx context.Context, orgID, userID string) (bool, error) {
	var ok bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM organisation_members WHERE organisation_id = $1 AND user_id = $2
		)
	`
	if err := r.db.GetContext(ctx, &ok, query, orgID, userID); err != nil {
		return false, fmt.Errorf("failed to check organisation membership: %w", err)
	}
	return ok, nil
}

// SharesOrganisation reports whether userA and userB are members of at least one
// common organisation.
func (r *OrganisationRepository) SharesOrganisation(ctx context.Context, userA, userB string) (bool, error) {
	var ok bool
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM organisation_members a
			JOIN organisation_members b ON b.organisation_id = a.organisation_id
			WHERE a.user_id = $1 AND b.user_id = $2
		)
	`
	if err := r.db.GetContext(ctx, &ok, query, userA, userB); err != nil {
		return false, fmt.Errorf("failed to check shared organisation: %w", err)
	}
	return ok, nil
}

// ListForUser returns the organisations userID is a member of, oldest first.
func (r *OrganisationRepository) ListForUser(ctx context.Context, userID string) ([]*models.Organisation, error) {
	query := `
		SELECT ` + organisationColumns + `
		FROM organisations o
		JOIN organisation_members m ON m.organisation_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.created_at, o.name
	`
	orgs := []*models.Organisation{}
	if err := r.db.SelectContext(ctx, &orgs, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list organisations for user: %w", err)
	}
	return orgs, nil
}

// ListMembers returns the users that belong to orgID, in the order they joined.
func (r *OrganisationRepository) ListMembers(ctx context.Context, orgID string) ([]*models.User, error) {
	query := `
		SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.phone, u.created_at, u.updated_at
		FROM users u
		JOIN organisation_members m ON m.user_id = u.id
		WHERE m.organisation_id = $1
		ORDER BY m.created_at
	`
	users := []*models.User{}
	if err := r.db.SelectContext(ctx, &users, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list organisation members: %w", err)
	}
	return users, nil
}
