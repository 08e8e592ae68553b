package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mikews93/deusrex-sub000/internal/model"
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

func seedIdentity(t *testing.T, db *gorm.DB, role string) (*model.User, *model.Organization) {
	t.Helper()
	user := &model.User{ExternalID: "user-ext-1", Email: "ana@example.com", FirstName: "Ana", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	org := &model.Organization{ExternalID: "org-ext-1", Name: "Clinica Norte", IsActive: true}
	require.NoError(t, db.Create(org).Error)
	membership := &model.Membership{UserID: user.ID, OrganizationID: org.ID, Role: role, IsActive: true}
	require.NoError(t, db.Create(membership).Error)
	return user, org
}

func claimsFor(subject, orgExternalID string) *jwtutil.Claims {
	claims := &jwtutil.Claims{OrgID: orgExternalID}
	claims.Subject = subject
	return claims
}

func TestResolveFullMatch(t *testing.T) {
	db := newTestDB(t)
	user, org := seedIdentity(t, db, model.RoleOwner)
	resolver := NewResolver(db)

	principal, err := resolver.Resolve(context.Background(), claimsFor("user-ext-1", "org-ext-1"))
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.Equal(t, user.ID, principal.UserID)
	assert.Equal(t, org.ID, principal.OrganizationID)
	assert.Equal(t, model.RoleOwner, principal.Role)
	assert.False(t, principal.IsAdmin())
	require.NotNil(t, principal.OrgScope())
	assert.Equal(t, org.ID, *principal.OrgScope())
}

func TestResolveUnknownUser(t *testing.T) {
	db := newTestDB(t)
	seedIdentity(t, db, model.RoleOwner)
	resolver := NewResolver(db)

	principal, err := resolver.Resolve(context.Background(), claimsFor("nobody", "org-ext-1"))
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestResolveUnknownOrganization(t *testing.T) {
	db := newTestDB(t)
	seedIdentity(t, db, model.RoleOwner)
	resolver := NewResolver(db)

	principal, err := resolver.Resolve(context.Background(), claimsFor("user-ext-1", "org-ext-other"))
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestResolveNoMembership(t *testing.T) {
	db := newTestDB(t)
	seedIdentity(t, db, model.RoleOwner)
	// A second organization the user does not belong to.
	other := &model.Organization{ExternalID: "org-ext-2", Name: "Clinica Sur", IsActive: true}
	require.NoError(t, db.Create(other).Error)
	resolver := NewResolver(db)

	principal, err := resolver.Resolve(context.Background(), claimsFor("user-ext-1", "org-ext-2"))
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestResolveInactiveMembership(t *testing.T) {
	db := newTestDB(t)
	user, org := seedIdentity(t, db, model.RoleOwner)
	require.NoError(t, db.Model(&model.Membership{}).
		Where("user_id = ? AND organization_id = ?", user.ID, org.ID).
		Update("is_active", false).Error)
	resolver := NewResolver(db)

	principal, err := resolver.Resolve(context.Background(), claimsFor("user-ext-1", "org-ext-1"))
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestResolveInactiveUser(t *testing.T) {
	db := newTestDB(t)
	user, _ := seedIdentity(t, db, model.RoleOwner)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)
	resolver := NewResolver(db)

	principal, err := resolver.Resolve(context.Background(), claimsFor("user-ext-1", "org-ext-1"))
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestResolveAdminWithoutOrganization(t *testing.T) {
	db := newTestDB(t)
	seedIdentity(t, db, model.RoleAdmin)
	resolver := NewResolver(db)

	principal, err := resolver.Resolve(context.Background(), claimsFor("user-ext-1", ""))
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.True(t, principal.IsAdmin())
	assert.Zero(t, principal.OrganizationID)
	assert.Nil(t, principal.OrgScope())
}

func TestResolveNonAdminWithoutOrganization(t *testing.T) {
	db := newTestDB(t)
	seedIdentity(t, db, model.RoleMember)
	resolver := NewResolver(db)

	principal, err := resolver.Resolve(context.Background(), claimsFor("user-ext-1", ""))
	require.NoError(t, err)
	assert.Nil(t, principal)
}

func TestResolveClaimsOverrideProfileFields(t *testing.T) {
	db := newTestDB(t)
	seedIdentity(t, db, model.RoleOwner)
	resolver := NewResolver(db)

	claims := claimsFor("user-ext-1", "org-ext-1")
	claims.FirstName = "Anita"
	claims.AvatarURL = "https://cdn.example.com/a.png"

	principal, err := resolver.Resolve(context.Background(), claims)
	require.NoError(t, err)
	require.NotNil(t, principal)
	assert.Equal(t, "Anita", principal.FirstName)
	assert.Equal(t, "https://cdn.example.com/a.png", principal.AvatarURL)
	// Absent claims fall back to the stored profile.
	assert.Equal(t, "ana@example.com", principal.Email)
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	principal := &Principal{UserID: 7, OrganizationID: 3}
	ctx := WithPrincipal(context.Background(), principal)

	got, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, principal, got)

	_, ok = PrincipalFromContext(context.Background())
	assert.False(t, ok)
}
