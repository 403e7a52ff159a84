package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/identity-service/identity-service/internal/auth"
	"github.com/identity-service/identity-service/internal/db/models"
	"github.com/identity-service/identity-service/internal/db/repositories"
	"github.com/identity-service/identity-service/internal/telemetry"
	"github.com/identity-service/identity-service/internal/validation"
)

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required,max=150"`
	LastName  string `json:"lastName" validate:"required,max=150"`
	Phone     string `json:"phone" validate:"max=256"`
}

func (in *RegisterInput) trim() {
	in.Email = strings.TrimSpace(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Phone = strings.TrimSpace(in.Phone)
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by a successful registration or login.
type AuthResult struct {
	AccessToken string             `json:"accessToken"`
	User        models.UserSummary `json:"user"`
}

// AccountService handles registration and login.
type AccountService struct {
	accounts AccountStore
	users    UserStore
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenIssuer
	audit    AuditRecorder
}

// NewAccountService creates a new AccountService. recorder may be nil.
func NewAccountService(accounts AccountStore, users UserStore, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer, recorder AuditRecorder) *AccountService {
	return &AccountService{
		accounts: accounts,
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		audit:    recorder,
	}
}

// Register creates a user together with its bootstrap organisation and returns an
// access token for the new user.
//
// Failures before persistence are returned as validation.Errors. A taken email is
// repositories.ErrDuplicateEmail. In both cases nothing has been written.
func (s *AccountService) Register(ctx context.Context, in RegisterInput, clientIP string) (*AuthResult, error) {
	in.trim()
	if err := validation.Struct(in); err != nil {
		telemetry.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		telemetry.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, validation.Errors{{Field: "password", Message: "Ensure this field has no more than 72 bytes."}}
	}
	if err != nil {
		telemetry.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
	}
	org := &models.Organisation{Name: models.BootstrapOrganisationName(in.FirstName)}

	if err := s.accounts.RegisterWithOrganisation(ctx, user, org); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			telemetry.RegistrationsTotal.WithLabelValues("duplicate_email").Inc()
			return nil, repositories.ErrDuplicateEmail
		}
		telemetry.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to register account: %w", err)
	}

	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		telemetry.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	telemetry.RegistrationsTotal.WithLabelValues("success").Inc()
	slog.Info("user registered", "user_id", user.ID, "organisation_id", org.ID)

	entry := &models.AuditLog{
		UserID:         strPtr(user.ID),
		OrganisationID: strPtr(org.ID),
		Action:         models.AuditActionUserRegister,
		ResourceType:   strPtr("user"),
		ResourceID:     strPtr(user.ID),
	}
	if clientIP != "" {
		entry.IPAddress = strPtr(clientIP)
	}
	s.record(entry)

	return &AuthResult{AccessToken: token, User: user.Summary()}, nil
}

// Login checks the credentials and returns an access token. Every credential
// failure is ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		telemetry.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		telemetry.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if user == nil {
		s.hasher.VerifyMissing(in.Password)
		telemetry.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(user.PasswordHash, in.Password) {
		telemetry.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		telemetry.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	telemetry.LoginsTotal.WithLabelValues("success").Inc()
	return &AuthResult{AccessToken: token, User: user.Summary()}, nil
}

func (s *AccountService) record(entry *models.AuditLog) {
	if s.audit != nil {
		s.audit.Record(entry)
	}
}
