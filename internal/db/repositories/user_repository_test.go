package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/identity-service/identity-service/internal/db/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var errDB = errors.New("db error")

var userCols = []string{
	"id", "email", "password_hash", "first_name", "last_name", "phone", "created_at", "updated_at",
}

func sampleUserRow() *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow("user-1", "alice@example.com", "$2a$04$hash", "Alice", "Smith", "+1", time.Now(), time.Now())
}

func emptyUserRow() *sqlmock.Rows {
	return sqlmock.NewRows(userCols)
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func newUserRepo(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return NewUserRepository(db), mock
}

func duplicateEmailErr() error {
	return &pq.Error{Code: "23505", Constraint: "users_email_key", Message: "duplicate key value violates unique constraint"}
}

// ---------------------------------------------------------------------------
// GetUserByID
// ---------------------------------------------------------------------------

func TestGetUserByID_Found(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WithArgs("user-1").
		WillReturnRows(sampleUserRow())

	user, err := repo.GetUserByID(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil {
		t.Fatal("expected user, got nil")
	}
	if user.ID != "user-1" || user.FirstName != "Alice" || user.Phone != "+1" {
		t.Errorf("user = %+v", user)
	}
	if user.PasswordHash != "$2a$04$hash" {
		t.Errorf("PasswordHash = %q, want stored hash", user.PasswordHash)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WithArgs("missing").
		WillReturnRows(emptyUserRow())

	user, err := repo.GetUserByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
}

func TestGetUserByID_DBError(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE id").
		WillReturnError(errDB)

	_, err := repo.GetUserByID(context.Background(), "user-1")
	if !errors.Is(err, errDB) {
		t.Errorf("error = %v, want wrapped errDB", err)
	}
}

// ---------------------------------------------------------------------------
// GetUserByEmail
// ---------------------------------------------------------------------------

func TestGetUserByEmail_Found(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE email").
		WithArgs("alice@example.com").
		WillReturnRows(sampleUserRow())

	user, err := repo.GetUserByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user == nil || user.Email != "alice@example.com" {
		t.Errorf("user = %+v", user)
	}
}

func TestGetUserByEmail_IsExactMatch(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE email").
		WithArgs("Alice@Example.com").
		WillReturnRows(emptyUserRow())

	user, err := repo.GetUserByEmail(context.Background(), "Alice@Example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Errorf("expected nil user, got %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("email was altered before lookup: %v", err)
	}
}

func TestGetUserByEmail_DBError(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectQuery("SELECT.*FROM users WHERE email").
		WillReturnError(errDB)

	if _, err := repo.GetUserByEmail(context.Background(), "a@x.com"); err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// insertUser
// ---------------------------------------------------------------------------

func TestInsertUser_Success(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "a@x.com", "hash", "A", "B", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{Email: "a@x.com", PasswordHash: "hash", FirstName: "A", LastName: "B"}
	if err := insertUser(context.Background(), repo.db, user); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID == "" {
		t.Error("ID was not assigned")
	}
	if user.CreatedAt.IsZero() || !user.CreatedAt.Equal(user.UpdatedAt) {
		t.Errorf("timestamps not set: created=%v updated=%v", user.CreatedAt, user.UpdatedAt)
	}
}

func TestInsertUser_DuplicateEmail(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(duplicateEmailErr())

	err := insertUser(context.Background(), repo.db, &models.User{Email: "a@x.com"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("error = %v, want ErrDuplicateEmail", err)
	}
}

func TestInsertUser_OtherUniqueViolationIsNotDuplicateEmail(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_pkey"})

	err := insertUser(context.Background(), repo.db, &models.User{Email: "a@x.com"})
	if err == nil || errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("error = %v, want a non-duplicate-email error", err)
	}
}

func TestInsertUser_DBError(t *testing.T) {
	repo, mock := newUserRepo(t)
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errDB)

	err := insertUser(context.Background(), repo.db, &models.User{Email: "a@x.com"})
	if !errors.Is(err, errDB) {
		t.Errorf("error = %v, want wrapped errDB", err)
	}
}

// ---------------------------------------------------------------------------
// translateError
// ---------------------------------------------------------------------------

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"duplicate email", duplicateEmailErr(), ErrDuplicateEmail},
		{"foreign key", &pq.Error{Code: "23503"}, ErrReferenceNotFound},
		{"plain error passes through", errDB, errDB},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateError(tt.in); !errors.Is(got, tt.want) {
				t.Errorf("translateError() = %v, want %v", got, tt.want)
			}
		})
	}
}
