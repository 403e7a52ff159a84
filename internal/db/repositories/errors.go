package repositories

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateEmail is returned when a user insert hits the unique email constraint.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrReferenceNotFound is returned when an insert references a user or
	// organisation that does not exist.
	ErrReferenceNotFound = errors.New("referenced record not found")
)

// Postgres SQLSTATE codes.
const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
)

const usersEmailConstraint = "users_email_key"

func pqError(err error) *pq.Error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr
	}
	return nil
}

// translateError maps driver errors with a domain meaning to the package sentinels.
// Anything else is returned unchanged.
func translateError(err error) error {
	pqErr := pqError(err)
	if pqErr == nil {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		if pqErr.Constraint == usersEmailConstraint {
			return ErrDuplicateEmail
		}
	case pqForeignKeyViolation:
		return ErrReferenceNotFound
	}
	return err
}
