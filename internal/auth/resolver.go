package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mikews93/deusrex-sub000/internal/apperr"
	"github.com/mikews93/deusrex-sub000/internal/model"
	"github.com/mikews93/deusrex-sub000/pkg/jwtutil"
)

// Resolver joins verified token claims against the local user, organization
// and membership tables. It is read-only and safe to call on every request.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a resolver backed by the given database.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// Resolve maps claims to a Principal. Organization, user and active
// membership must all match for a non-nil result; any partial match resolves
// to nil without error, and the guard layer decides whether that is fatal.
// Claims with no organization id resolve for administrative users only.
func (r *Resolver) Resolve(ctx context.Context, claims *jwtutil.Claims) (*Principal, error) {
	db := r.db.WithContext(ctx)

	var user model.User
	err := db.Where("external_id = ? AND is_active = ?", claims.Subject, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.EStorage, err, "user lookup failed")
	}

	externalOrgID := claims.ExternalOrgID()
	if externalOrgID == "" {
		return r.resolveAdmin(db, &user, claims)
	}

	var org model.Organization
	err = db.Where("external_id = ? AND is_active = ?", externalOrgID, true).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.EStorage, err, "organization lookup failed")
	}

	var membership model.Membership
	err = db.Where("user_id = ? AND organization_id = ? AND is_active = ?", user.ID, org.ID, true).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.EStorage, err, "membership lookup failed")
	}

	return newPrincipal(&user, claims, org.ID, membership.Role), nil
}

// resolveAdmin handles tokens that carry no organization claim. Only a user
// holding an active administrative membership somewhere may act without a
// tenant; everyone else resolves to nil and is rejected by the guard.
func (r *Resolver) resolveAdmin(db *gorm.DB, user *model.User, claims *jwtutil.Claims) (*Principal, error) {
	var membership model.Membership
	err := db.Where("user_id = ? AND role = ? AND is_active = ?", user.ID, model.RoleAdmin, true).
		First(&membership).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.EStorage, err, "membership lookup failed")
	}

	return newPrincipal(user, claims, 0, model.RoleAdmin), nil
}

// newPrincipal merges local ids with claim display fields. Claims are the
// source of truth for profile data; local storage for ids and role.
func newPrincipal(user *model.User, claims *jwtutil.Claims, orgID uint, role string) *Principal {
	email := claims.Email
	if email == "" {
		email = user.Email
	}
	firstName := claims.FirstName
	if firstName == "" {
		firstName = user.FirstName
	}
	lastName := claims.LastName
	if lastName == "" {
		lastName = user.LastName
	}

	return &Principal{
		UserID:         user.ID,
		ExternalID:     user.ExternalID,
		Email:          email,
		FirstName:      firstName,
		LastName:       lastName,
		AvatarURL:      claims.AvatarURL,
		OrganizationID: orgID,
		Role:           role,
		IsActive:       user.IsActive,
	}
}
