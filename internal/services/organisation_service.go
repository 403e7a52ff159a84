package services

import (
	"context"
	"errors"
	"strings"

	"github.com/identity-service/identity-service/internal/auth"
	"github.com/identity-service/identity-service/internal/authz"
	"github.com/identity-service/identity-service/internal/db/models"
	"github.com/identity-service/identity-service/internal/db/repositories"
	"github.com/identity-service/identity-service/internal/validation"
)

// CreateOrganisationInput is the payload for creating an organisation.
type CreateOrganisationInput struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=255"`
}

// AddMemberInput is the payload for adding a user to an organisation.
type AddMemberInput struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

// OrganisationService handles organisation and membership operations.
type OrganisationService struct {
	orgs  OrganisationStore
	users UserStore
	authz *authz.Engine
}

// NewOrganisationService creates a new OrganisationService
func NewOrganisationService(orgs OrganisationStore, users UserStore, engine *authz.Engine) *OrganisationService {
	return &OrganisationService{orgs: orgs, users: users, authz: engine}
}

// Create creates an organisation with the caller as its first member.
func (s *OrganisationService) Create(ctx context.Context, id auth.Identity, in CreateOrganisationInput) (*models.Organisation, error) {
	if err := s.authz.CanCreateOrganisation(ctx, id); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	org := &models.Organisation{Name: in.Name, Description: in.Description}
	if err := s.orgs.CreateWithMember(ctx, org, id.UserID); err != nil {
		return nil, err
	}
	return org, nil
}

// Get returns an organisation the caller is a member of. A missing organisation
// is ErrNotFound; an existing one the caller does not belong to is authz.ErrForbidden.
func (s *OrganisationService) Get(ctx context.Context, id auth.Identity, orgID string) (*models.Organisation, error) {
	if id.UserID == "" {
		return nil, authz.ErrUnauthenticated
	}
	org, err := s.lookup(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanViewOrganisation(ctx, id, org.ID); err != nil {
		return nil, err
	}
	return org, nil
}

// List returns the organisations the caller is a member of.
func (s *OrganisationService) List(ctx context.Context, id auth.Identity) ([]*models.Organisation, error) {
	if err := s.authz.CanListOrganisations(ctx, id); err != nil {
		return nil, err
	}
	return s.orgs.ListForUser(ctx, id.UserID)
}

// AddMember adds the user named in the payload to orgID. The caller must be a
// member of orgID. Adding an existing member succeeds without change.
func (s *OrganisationService) AddMember(ctx context.Context, id auth.Identity, orgID string, in AddMemberInput) error {
	_, err := s.AddMemberFrom(ctx, id, orgID, func(dst *AddMemberInput) error {
		*dst = in
		return nil
	})
	return err
}

// AddMemberFrom is AddMember with the payload produced by bind. bind runs only
// after the organisation exists and the caller is a member, so a malformed body
// never reveals more than a 404 or 403 would. It returns the user that was added.
func (s *OrganisationService) AddMemberFrom(ctx context.Context, id auth.Identity, orgID string, bind func(*AddMemberInput) error) (*models.User, error) {
	if id.UserID == "" {
		return nil, authz.ErrUnauthenticated
	}
	org, err := s.lookup(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAddMember(ctx, id, org.ID); err != nil {
		return nil, err
	}

	var in AddMemberInput
	if err := bind(&in); err != nil {
		return nil, err
	}
	in.UserID = strings.TrimSpace(in.UserID)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	if _, err := s.orgs.AddMember(ctx, org.ID, user.ID); err != nil {
		// The user or organisation vanished between lookup and insert.
		if errors.Is(err, repositories.ErrReferenceNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// ListMembers returns the members of orgID. The caller must be a member.
func (s *OrganisationService) ListMembers(ctx context.Context, id auth.Identity, orgID string) ([]*models.User, error) {
	if id.UserID == "" {
		return nil, authz.ErrUnauthenticated
	}
	org, err := s.lookup(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanListMembers(ctx, id, org.ID); err != nil {
		return nil, err
	}
	return s.orgs.ListMembers(ctx, org.ID)
}

func (s *OrganisationService) lookup(ctx context.Context, orgID string) (*models.Organisation, error) {
	if !validID(orgID) {
		return nil, ErrNotFound
	}
	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, ErrNotFound
	}
	return org, nil
}
