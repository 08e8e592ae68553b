// Package repository provides the tenant-scoped persistence base shared by
// every resource service. All reads are filtered by organization and exclude
// soft-deleted rows by default; all writes stamp the acting user. The
// package exposes no unfiltered accessor: when a tenant scope is supplied it
// is always applied, and only the cross-tenant administrative path may omit
// one.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/mikews93/deusrex-sub000/internal/apperr"
)

// Entity is the contract every tenant-scoped model satisfies by embedding
// model.TenantModel.
type Entity interface {
	GetID() uint
	GetOrganizationID() uint
	SetOrganizationID(orgID uint)
	StampCreate(userID *uint)
	StampUpdate(userID *uint)
	StampDelete(userID *uint)
}

// FilterFunc adds entity-specific predicates to a query. Resource modules
// supply these instead of subclassing the repository.
type FilterFunc func(*gorm.DB) *gorm.DB

// ListQuery describes a scoped listing. A nil OrganizationID is the
// cross-tenant administrative path; every other caller passes the
// principal's organization.
type ListQuery struct {
	OrganizationID *uint
	IncludeDeleted bool
	Limit          int
	Offset         int
	Filters        []FilterFunc
}

// Repository is the generic scoped data-access base. T is the entity struct;
// its pointer type must satisfy Entity.
type Repository[T any, P interface {
	*T
	Entity
}] struct {
	db      *gorm.DB
	filters []FilterFunc
}

// New creates a repository for T. Base filters, if any, apply to every read.
func New[T any, P interface {
	*T
	Entity
}](db *gorm.DB, filters ...FilterFunc) *Repository[T, P] {
	return &Repository[T, P]{db: db, filters: filters}
}

// scope builds the mandatory conjunctive filter: tenant match plus the
// repository's base predicates. Soft-delete exclusion comes from gorm unless
// the caller opts into deleted rows.
func (r *Repository[T, P]) scope(ctx context.Context, orgID *uint, includeDeleted bool) *gorm.DB {
	query := r.db.WithContext(ctx)
	if includeDeleted {
		query = query.Unscoped()
	}
	if orgID != nil {
		query = query.Where("organization_id = ?", *orgID)
	}
	for _, filter := range r.filters {
		query = filter(query)
	}
	return query
}

// List returns entities matching the query. Ordering is whatever the
// supplied filters request; the base guarantees only stability for a given
// filter set.
func (r *Repository[T, P]) List(ctx context.Context, q ListQuery) ([]T, error) {
	query := r.scope(ctx, q.OrganizationID, q.IncludeDeleted)
	for _, filter := range q.Filters {
		query = filter(query)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	var rows []T
	if err := query.Find(&rows).Error; err != nil {
		return nil, Classify(err, "list failed")
	}
	return rows, nil
}

// GetByID fetches one entity within the tenant scope. A row belonging to a
// different organization is indistinguishable from an absent one: both are
// NotFound.
func (r *Repository[T, P]) GetByID(ctx context.Context, id uint, orgID *uint) (*T, error) {
	var entity T
	err := r.scope(ctx, orgID, false).Where("id = ?", id).First(&entity).Error
	if err != nil {
		return nil, Classify(err, "lookup failed")
	}
	return &entity, nil
}

// Create persists a new entity. The organization id is always taken from the
// resolved tenant, overriding anything the caller put on the struct, and the
// audit stamps record the acting user.
func (r *Repository[T, P]) Create(ctx context.Context, entity *T, orgID uint, userID *uint) (*T, error) {
	P(entity).SetOrganizationID(orgID)
	P(entity).StampCreate(userID)

	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return nil, Classify(err, "create failed")
	}
	return entity, nil
}

// columns that callers may never change through Update.
var immutableColumns = map[string]struct{}{
	"id":              {},
	"organization_id": {},
	"created_by":      {},
	"created_at":      {},
	"deleted_at":      {},
	"deleted_by":      {},
}

// Update applies a partial update within the tenant scope. Attempts to
// change the organization or the creation stamp are rejected outright.
func (r *Repository[T, P]) Update(ctx context.Context, id uint, updates map[string]any, orgID *uint, userID *uint) (*T, error) {
	for column := range updates {
		if _, forbidden := immutableColumns[column]; forbidden {
			return nil, apperr.Newf(apperr.EInvalid, "column %q cannot be updated", column)
		}
	}

	entity, err := r.GetByID(ctx, id, orgID)
	if err != nil {
		return nil, err
	}

	updates["updated_by"] = userID
	if err := r.db.WithContext(ctx).Model(entity).Updates(updates).Error; err != nil {
		return nil, Classify(err, "update failed")
	}

	// Reload so the caller sees the stored row, including refreshed
	// timestamps, rather than the partially applied struct.
	return r.GetByID(ctx, id, orgID)
}

// SoftDelete marks the entity deleted without removing the row. Physical
// deletion is not exposed. The deactivation and the delete mark commit
// together; a failure leaves the row untouched.
func (r *Repository[T, P]) SoftDelete(ctx context.Context, id uint, orgID *uint, userID *uint) (*T, error) {
	entity, err := r.GetByID(ctx, id, orgID)
	if err != nil {
		return nil, err
	}

	P(entity).StampDelete(userID)
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(entity).Updates(map[string]any{
			"is_active":  false,
			"deleted_by": userID,
		}).Error; err != nil {
			return err
		}
		return tx.Delete(entity).Error
	})
	if err != nil {
		return nil, Classify(err, "soft delete failed")
	}
	return entity, nil
}

// Classify maps storage failures onto the shared taxonomy: lookup misses are
// NotFound, constraint violations are Conflict, everything else is a
// StorageError fatal for the request but not the process.
func Classify(err error, msg string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(apperr.ENotFound, err, "not found")
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperr.Wrap(apperr.EConflict, err, msg)
	default:
		return apperr.Wrap(apperr.EStorage, err, msg)
	}
}
