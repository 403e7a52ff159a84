package repositories

import (
	"context"

	"github.com/identity-service/identity-service/internal/db/models"
	"github.com/jmoiron/sqlx"
)

// AccountRepository writes the records that make up a new account.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// RegisterWithOrganisation inserts user, its bootstrap organisation org, and the
// membership edge between them in a single transaction. Either all three rows
// exist afterwards or none do. ErrDuplicateEmail is returned unwrapped.
func (r *AccountRepository) RegisterWithOrganisation(ctx context.Context, user *models.User, org *models.Organisation) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		if err := insertOrganisation(ctx, tx, org); err != nil {
			return err
		}
		_, err := insertMember(ctx, tx, org.ID, user.ID)
		return err
	})
}
