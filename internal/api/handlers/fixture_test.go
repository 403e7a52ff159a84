package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/identity-service/identity-service/internal/auth"
	"github.com/identity-service/identity-service/internal/authz"
	"github.com/identity-service/identity-service/internal/db/repositories"
	"github.com/identity-service/identity-service/internal/middleware"
	"github.com/identity-service/identity-service/internal/services"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "handlers-test-secret-0123456789abcdef"

const (
	aliceID = "6f1c2a0e-3b7d-4c1e-9a55-0d2f8e4b7a11"
	bobID   = "a3e9d4b2-58c1-4f0a-8d6e-7b2c9f1e0d22"
	orgID   = "c7b1e5f3-2d4a-4e8b-b9c0-1a6f3d5e8c33"
)

var userCols = []string{
	"id", "email", "password_hash", "first_name", "last_name", "phone", "created_at", "updated_at",
}

var orgCols = []string{"id", "name", "description", "created_at", "updated_at"}

// fixture wires the real repositories and services over a sqlmock database.
type fixture struct {
	mock   sqlmock.Sqlmock
	router *gin.Engine
	tokens *auth.TokenIssuer
	hasher *auth.PasswordHasher

	// audited holds the audit context keys set by the last handler.
	audited map[string]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sql expectations: %v", err)
		}
		sqlDB.Close()
	})
	db := sqlx.NewDb(sqlDB, "sqlmock")

	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewPasswordHasher: %v", err)
	}
	tokens := auth.NewTokenIssuer(testSecret, 30*time.Minute, "identity-service")

	userRepo := repositories.NewUserRepository(db)
	orgRepo := repositories.NewOrganisationRepository(db)
	engine := authz.NewEngine(orgRepo)

	authH := NewAuthHandlers(services.NewAccountService(
		repositories.NewAccountRepository(db), userRepo, hasher, tokens, nil))
	userH := NewUserHandlers(services.NewUserService(userRepo, engine))
	orgH := NewOrganisationHandlers(services.NewOrganisationService(orgRepo, userRepo, engine))

	f := &fixture{mock: mock, tokens: tokens, hasher: hasher, audited: map[string]string{}}

	r := gin.New()
	r.POST("/auth/register", authH.RegisterHandler())
	r.POST("/auth/login", authH.LoginHandler())

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(tokens), func(c *gin.Context) {
		c.Next()
		for _, k := range []string{middleware.AuditOrganisationKey, middleware.AuditResourceKey} {
			if v := c.GetString(k); v != "" {
				f.audited[k] = v
			}
		}
	})
	api.GET("/users/:userId", userH.GetUserHandler())
	api.POST("/organisations", orgH.CreateOrganisationHandler())
	api.GET("/organisations", orgH.ListOrganisationsHandler())
	api.GET("/organisations/:orgId", orgH.GetOrganisationHandler())
	api.POST("/organisations/:orgId/users", orgH.AddMemberHandler())
	api.GET("/organisations/:orgId/users", orgH.ListMembersHandler())

	f.router = r
	return f
}

// do sends a request as userID; an empty userID sends no Authorization header.
func (f *fixture) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, _, err := f.tokens.Issue(userID)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func userRow(id, email, hash, first string) *sqlmock.Rows {
	return sqlmock.NewRows(userCols).
		AddRow(id, email, hash, first, "Smith", "", time.Now(), time.Now())
}

func orgRow(id, name string) *sqlmock.Rows {
	return sqlmock.NewRows(orgCols).AddRow(id, name, "", time.Now(), time.Now())
}

func existsRow(ok bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"exists"}).AddRow(ok)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
	return body
}

// fieldErrors returns the field names of a 422 body.
func fieldErrors(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422; body=%s", w.Code, w.Body.String())
	}
	raw, ok := decode(t, w)["errors"].([]interface{})
	if !ok {
		t.Fatalf("missing errors array: %s", w.Body.String())
	}
	out := make(map[string]string, len(raw))
	for _, e := range raw {
		fe := e.(map[string]interface{})
		out[fe["field"].(string)] = fe["message"].(string)
	}
	return out
}
