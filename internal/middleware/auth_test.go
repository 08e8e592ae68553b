package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mikews93/deusrex-sub000/internal/auth"
	"github.com/mikews93/deusrex-sub000/internal/model"
	"github.com/mikews93/deusrex-sub000/pkg/config"
	"github.com/mikews93/deusrex-sub000/pkg/jwtutil"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Organization{}, &model.Membership{}))
	return db
}

func initJWT(t *testing.T) {
	t.Helper()
	jwtutil.Initialize(&config.JWTConfig{
		SigningKey:        "test-signing-key",
		AuthorizedParties: []string{"practice-web"},
		ExpirationHours:   1,
	})
	t.Cleanup(func() { jwtutil.Initialize(nil) })
}

func seedMember(t *testing.T, db *gorm.DB, role string) (*model.User, *model.Organization) {
	t.Helper()
	user := &model.User{ExternalID: "user-ext-1", Email: "ana@example.com", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	org := &model.Organization{ExternalID: "org-ext-1", Name: "Clinica Norte", IsActive: true}
	require.NoError(t, db.Create(org).Error)
	membership := &model.Membership{UserID: user.ID, OrganizationID: org.ID, Role: role, IsActive: true}
	require.NoError(t, db.Create(membership).Error)
	return user, org
}

// okHandler records that the chain reached the handler and echoes the
// resolved principal's ids.
func okHandler(c echo.Context) error {
	principal, ok := PrincipalFromEcho(c)
	if !ok {
		return c.JSON(http.StatusOK, echo.Map{"principal": false})
	}
	// The principal must also be visible on the request context.
	if _, ok := auth.PrincipalFromContext(c.Request().Context()); !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "principal missing from request context"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":         principal.UserID,
		"organization_id": principal.OrganizationID,
	})
}

func doRequest(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newAuthServer(t *testing.T, db *gorm.DB, allowList []PublicRoute) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.Use(Authenticate(auth.NewResolver(db), allowList))
	e.GET("/health", okHandler)
	e.GET("/api/resource", okHandler)
	return e
}

func TestAuthenticateAllowListBypass(t *testing.T) {
	initJWT(t)
	e := newAuthServer(t, newTestDB(t), []PublicRoute{{Method: "GET", Path: "/health"}})

	rec := doRequest(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// The allow-list matches method and path exactly.
	rec = doRequest(e, http.MethodGet, "/api/resource", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticateMissingToken(t *testing.T) {
	initJWT(t)
	e := newAuthServer(t, newTestDB(t), nil)

	rec := doRequest(e, http.MethodGet, "/api/resource", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization token")
}

func TestAuthenticateInvalidToken(t *testing.T) {
	initJWT(t)
	e := newAuthServer(t, newTestDB(t), nil)

	rec := doRequest(e, http.MethodGet, "/api/resource", "not.a.token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid or expired token")
}

func TestAuthenticateMisconfiguredVerifier(t *testing.T) {
	jwtutil.Initialize(nil)
	e := newAuthServer(t, newTestDB(t), nil)

	// A verifier with no keys is a server fault, not a caller fault.
	rec := doRequest(e, http.MethodGet, "/api/resource", "whatever")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthenticateResolvedPrincipal(t *testing.T) {
	initJWT(t)
	db := newTestDB(t)
	user, org := seedMember(t, db, model.RoleOwner)
	e := newAuthServer(t, db, nil)

	token, err := jwtutil.GenerateToken(user.ExternalID, user.Email, org.ExternalID, "", "")
	require.NoError(t, err)

	rec := doRequest(e, http.MethodGet, "/api/resource", token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":1`)
	assert.Contains(t, rec.Body.String(), `"organization_id":1`)
}

func TestAuthenticateUnknownPrincipal(t *testing.T) {
	initJWT(t)
	db := newTestDB(t)
	e := newAuthServer(t, db, nil)

	// Verified token, but nothing in local storage matches it.
	token, err := jwtutil.GenerateToken("ghost", "ghost@example.com", "org-ext-1", "", "")
	require.NoError(t, err)

	rec := doRequest(e, http.MethodGet, "/api/resource", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown principal")
}

// withPrincipal mimics what Authenticate does after resolution.
func withPrincipal(p *auth.Principal) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("principal", p)
			ctx := auth.WithPrincipal(c.Request().Context(), p)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func TestRequireOrganizationRejectsMissingTenant(t *testing.T) {
	e := echo.New()
	principal := &auth.Principal{UserID: 1, Role: model.RoleMember}
	e.Use(withPrincipal(principal))
	e.GET("/api/resource", okHandler, RequireOrganization)

	rec := doRequest(e, http.MethodGet, "/api/resource", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "organization context required")
}

func TestRequireOrganizationAllowsTenantPrincipal(t *testing.T) {
	e := echo.New()
	principal := &auth.Principal{UserID: 1, OrganizationID: 3, Role: model.RoleMember}
	e.Use(withPrincipal(principal))
	e.GET("/api/resource", okHandler, RequireOrganization)

	rec := doRequest(e, http.MethodGet, "/api/resource", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireOrganizationExemptsAdmins(t *testing.T) {
	e := echo.New()
	principal := &auth.Principal{UserID: 1, Role: model.RoleAdmin}
	e.Use(withPrincipal(principal))
	e.GET("/api/resource", okHandler, RequireOrganization)

	rec := doRequest(e, http.MethodGet, "/api/resource", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireOrganizationWithoutPrincipal(t *testing.T) {
	e := echo.New()
	e.GET("/api/resource", okHandler, RequireOrganization)

	rec := doRequest(e, http.MethodGet, "/api/resource", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
