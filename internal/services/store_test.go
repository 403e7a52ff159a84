package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/identity-service/identity-service/internal/auth"
	"github.com/identity-service/identity-service/internal/authz"
	"github.com/identity-service/identity-service/internal/db/models"
	"github.com/identity-service/identity-service/internal/db/repositories"
	"golang.org/x/crypto/bcrypt"
)

// memStore is an in-memory implementation of every store the services use.
// It mirrors the repository contract: (nil, nil) for missing rows,
// ErrDuplicateEmail on a taken email, idempotent membership.
type memStore struct {
	mu      sync.Mutex
	users   map[string]*models.User
	orgs    map[string]*models.Organisation
	members map[string][]string // org id -> user ids in join order

	failWith error
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*models.User{},
		orgs:    map[string]*models.Organisation{},
		members: map[string][]string{},
	}
}

func (m *memStore) RegisterWithOrganisation(_ context.Context, user *models.User, org *models.Organisation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicateEmail
		}
	}
	user.ID = uuid.New().String()
	org.ID = uuid.New().String()
	m.users[user.ID] = user
	m.orgs[org.ID] = org
	m.members[org.ID] = []string{user.ID}
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.users[id], nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memStore) CreateWithMember(_ context.Context, org *models.Organisation, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	org.ID = uuid.New().String()
	m.orgs[org.ID] = org
	m.members[org.ID] = []string{userID}
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*models.Organisation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orgs[id], nil
}

func (m *memStore) AddMember(_ context.Context, orgID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orgs[orgID] == nil || m.users[userID] == nil {
		return false, repositories.ErrReferenceNotFound
	}
	for _, id := range m.members[orgID] {
		if id == userID {
			return false, nil
		}
	}
	m.members[orgID] = append(m.members[orgID], userID)
	return true, nil
}

func (m *memStore) ListForUser(_ context.Context, userID string) ([]*models.Organisation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Organisation{}
	for orgID, ids := range m.members {
		for _, id := range ids {
			if id == userID {
				out = append(out, m.orgs[orgID])
			}
		}
	}
	return out, nil
}

func (m *memStore) ListMembers(_ context.Context, orgID string) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.User{}
	for _, id := range m.members[orgID] {
		out = append(out, m.users[id])
	}
	return out, nil
}

func (m *memStore) IsMember(_ context.Context, orgID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.members[orgID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SharesOrganisation(ctx context.Context, a, b string) (bool, error) {
	m.mu.Lock()
	orgIDs := make([]string, 0, len(m.members))
	for id := range m.members {
		orgIDs = append(orgIDs, id)
	}
	m.mu.Unlock()
	for _, orgID := range orgIDs {
		inA, _ := m.IsMember(ctx, orgID, a)
		inB, _ := m.IsMember(ctx, orgID, b)
		if inA && inB {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) memberCount(orgID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.members[orgID])
}

// recorderSpy captures audit entries synchronously.
type recorderSpy struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (r *recorderSpy) Record(entry *models.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

var errStore = errors.New("store unavailable")

const testSecret = "services-test-secret-0123456789abcdef"

// fixture wires every service over one memStore.
type fixture struct {
	store    *memStore
	audit    *recorderSpy
	tokens   *auth.TokenIssuer
	accounts *AccountService
	users    *UserService
	orgs     *OrganisationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	store := newMemStore()
	spy := &recorderSpy{}
	tokens := auth.NewTokenIssuer(testSecret, 30*time.Minute, "identity-service")
	engine := authz.NewEngine(store)
	return &fixture{
		store:    store,
		audit:    spy,
		tokens:   tokens,
		accounts: NewAccountService(store, store, hasher, tokens, spy),
		users:    NewUserService(store, engine),
		orgs:     NewOrganisationService(store, store, engine),
	}
}

// register creates a user and returns its identity.
func (f *fixture) register(t *testing.T, email, firstName string) auth.Identity {
	t.Helper()
	res, err := f.accounts.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "p1",
		FirstName: firstName,
		LastName:  "Test",
	}, "")
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return auth.Identity{UserID: res.User.UserID}
}
