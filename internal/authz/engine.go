// Package authz decides whether an authenticated identity may perform an action on
// a user or organisation. Every decision takes the caller's identity as an explicit
// argument and consults the membership graph; nothing is read from request state.
//
// Decisions are re-evaluated on every request against current membership, so adding
// a user to an organisation takes effect on their next call without reissuing tokens.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/identity-service/identity-service/internal/auth"
	"github.com/identity-service/identity-service/internal/telemetry"
)

// Action names a decision point. The value is used as a metric label.
type Action string

const (
	ActionViewUser           Action = "user:view"
	ActionCreateOrganisation Action = "organisation:create"
	ActionViewOrganisation   Action = "organisation:view"
	ActionListOrganisations  Action = "organisation:list"
	ActionAddMember          Action = "organisation:add_member"
	ActionListMembers        Action = "organisation:list_members"
)

var (
	// ErrUnauthenticated is returned when the identity carries no user.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when an authenticated identity is not permitted.
	ErrForbidden = errors.New("forbidden")
)

// MembershipReader is the part of the membership graph the engine consults.
type MembershipReader interface {
	IsMember(ctx context.Context, orgID, userID string) (bool, error)
	SharesOrganisation(ctx context.Context, userA, userB string) (bool, error)
}

// Engine evaluates authorization rules.
type Engine struct {
	members MembershipReader
}

// NewEngine creates an Engine backed by members.
func NewEngine(members MembershipReader) *Engine {
	return &Engine{members: members}
}

// CanViewUser allows a user to view their own profile, or the profile of anyone
// they share at least one organisation with.
func (e *Engine) CanViewUser(ctx context.Context, id auth.Identity, targetUserID string) error {
	if id.UserID == "" {
		return e.decide(ActionViewUser, ErrUnauthenticated)
	}
	if id.UserID == targetUserID {
		return e.decide(ActionViewUser, nil)
	}
	shared, err := e.members.SharesOrganisation(ctx, id.UserID, targetUserID)
	if err != nil {
		return fmt.Errorf("authz %s: %w", ActionViewUser, err)
	}
	return e.decide(ActionViewUser, allowIf(shared))
}

// CanCreateOrganisation allows any authenticated identity.
func (e *Engine) CanCreateOrganisation(_ context.Context, id auth.Identity) error {
	if id.UserID == "" {
		return e.decide(ActionCreateOrganisation, ErrUnauthenticated)
	}
	return e.decide(ActionCreateOrganisation, nil)
}

// CanListOrganisations allows any authenticated identity. The listing itself is
// restricted to the caller's own memberships.
func (e *Engine) CanListOrganisations(_ context.Context, id auth.Identity) error {
	if id.UserID == "" {
		return e.decide(ActionListOrganisations, ErrUnauthenticated)
	}
	return e.decide(ActionListOrganisations, nil)
}

// CanViewOrganisation allows members of orgID only.
func (e *Engine) CanViewOrganisation(ctx context.Context, id auth.Identity, orgID string) error {
	return e.requireMember(ctx, ActionViewOrganisation, id, orgID)
}

// CanListMembers allows members of orgID only.
func (e *Engine) CanListMembers(ctx context.Context, id auth.Identity, orgID string) error {
	return e.requireMember(ctx, ActionListMembers, id, orgID)
}

// CanAddMember allows members of orgID to add other users to it.
func (e *Engine) CanAddMember(ctx context.Context, id auth.Identity, orgID string) error {
	return e.requireMember(ctx, ActionAddMember, id, orgID)
}

func (e *Engine) requireMember(ctx context.Context, action Action, id auth.Identity, orgID string) error {
	if id.UserID == "" {
		return e.decide(action, ErrUnauthenticated)
	}
	member, err := e.members.IsMember(ctx, orgID, id.UserID)
	if err != nil {
		return fmt.Errorf("authz %s: %w", action, err)
	}
	return e.decide(action, allowIf(member))
}

func allowIf(ok bool) error {
	if ok {
		return nil
	}
	return ErrForbidden
}

// decide records the outcome and returns it unchanged.
func (e *Engine) decide(action Action, outcome error) error {
	decision := "allow"
	switch {
	case errors.Is(outcome, ErrUnauthenticated):
		decision = "unauthenticated"
	case errors.Is(outcome, ErrForbidden):
		decision = "deny"
	}
	telemetry.AuthzDecisionsTotal.WithLabelValues(string(action), decision).Inc()
	return outcome
}
