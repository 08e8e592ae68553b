package auth

import "context"

// Principal is the resolved identity attached to an authenticated request:
// internal user id and role from local storage, display fields from the
// verified token claims. It is immutable once constructed and lives for one
// request.
type Principal struct {
	UserID         uint
	ExternalID     string
	Email          string
	FirstName      string
	LastName       string
	AvatarURL      string
	OrganizationID uint
	Role           string
	IsActive       bool
}

// IsAdmin reports whether the principal holds the cross-tenant
// administrative role.
func (p *Principal) IsAdmin() bool { return p.Role == "admin" }

// OrgScope returns the tenant scope for repository calls: the resolved
// organization id, or nil for an administrative principal acting across
// tenants.
func (p *Principal) OrgScope() *uint {
	if p.OrganizationID == 0 {
		return nil
	}
	orgID := p.OrganizationID
	return &orgID
}

// ActorID returns the internal user id used for audit stamping.
func (p *Principal) ActorID() *uint {
	if p.UserID == 0 {
		return nil
	}
	userID := p.UserID
	return &userID
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a context carrying the principal. Downstream code
// receives identity through this immutable value, never through mutable
// request state.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the principal from the context, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok
}
