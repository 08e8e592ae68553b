package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mikews93/deusrex-sub000/internal/apperr"
	"github.com/mikews93/deusrex-sub000/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Patient{}))
	return db
}

func orgScope(id uint) *uint { return &id }

func seedPatient(t *testing.T, repo *Repository[model.Patient, *model.Patient], orgID uint, firstName string) *model.Patient {
	t.Helper()
	actor := uint(1)
	created, err := repo.Create(context.Background(), &model.Patient{
		FirstName: firstName,
		LastName:  "Test",
	}, orgID, &actor)
	require.NoError(t, err)
	return created
}

func TestCreateStampsTenantAndActor(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db)
	actor := uint(9)

	// The caller-set organization must be overridden by the resolved tenant.
	patient := &model.Patient{FirstName: "Ana", LastName: "Mora"}
	patient.OrganizationID = 999

	created, err := repo.Create(context.Background(), patient, 1, &actor)
	require.NoError(t, err)
	assert.Equal(t, uint(1), created.OrganizationID)
	assert.True(t, created.IsActive)
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, actor, *created.CreatedBy)
	require.NotNil(t, created.UpdatedBy)
	assert.Equal(t, actor, *created.UpdatedBy)
}

func TestListIsTenantScoped(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db)
	seedPatient(t, repo, 1, "Ana")
	seedPatient(t, repo, 1, "Leo")
	seedPatient(t, repo, 2, "Eva")

	rows, err := repo.List(context.Background(), ListQuery{OrganizationID: orgScope(1)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, uint(1), row.OrganizationID)
	}
}

func TestListCrossTenantForAdmins(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db)
	seedPatient(t, repo, 1, "Ana")
	seedPatient(t, repo, 2, "Eva")

	// A nil scope is the administrative path and sees every tenant.
	rows, err := repo.List(context.Background(), ListQuery{})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestListFiltersAndPagination(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db)
	seedPatient(t, repo, 1, "Ana")
	seedPatient(t, repo, 1, "Leo")
	seedPatient(t, repo, 1, "Eva")

	rows, err := repo.List(context.Background(), ListQuery{
		OrganizationID: orgScope(1),
		Filters: []FilterFunc{func(q *gorm.DB) *gorm.DB {
			return q.Where("first_name = ?", "Leo")
		}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Leo", rows[0].FirstName)

	rows, err = repo.List(context.Background(), ListQuery{
		OrganizationID: orgScope(1),
		Limit:          2,
		Offset:         1,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestGetByIDCrossTenantIsNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db)
	created := seedPatient(t, repo, 1, "Ana")

	// A row in another tenant must be indistinguishable from an absent one.
	_, err := repo.GetByID(context.Background(), created.ID, orgScope(2))
	require.Error(t, err)
	assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))

	got, err := repo.GetByID(context.Background(), created.ID, orgScope(1))
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestUpdateRejectsImmutableColumns(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db)
	created := seedPatient(t, repo, 1, "Ana")

	for _, column := range []string{"id", "organization_id", "created_by", "created_at", "deleted_at", "deleted_by"} {
		_, err := repo.Update(context.Background(), created.ID, map[string]any{column: 42}, orgScope(1), nil)
		require.Error(t, err, column)
		assert.Equal(t, apperr.EInvalid, apperr.ErrorCode(err), column)
	}
}

func TestUpdateStampsActor(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db)
	created := seedPatient(t, repo, 1, "Ana")
	actor := uint(5)

	updated, err := repo.Update(context.Background(), created.ID,
		map[string]any{"first_name": "Anita"}, orgScope(1), &actor)
	require.NoError(t, err)
	assert.Equal(t, "Anita", updated.FirstName)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, actor, *updated.UpdatedBy)
	// The tenant never moves.
	assert.Equal(t, uint(1), updated.OrganizationID)
}

func TestUpdateCrossTenantIsNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db)
	created := seedPatient(t, repo, 1, "Ana")

	_, err := repo.Update(context.Background(), created.ID,
		map[string]any{"first_name": "Anita"}, orgScope(2), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))
}

func TestSoftDeleteHidesRow(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db)
	created := seedPatient(t, repo, 1, "Ana")
	actor := uint(3)

	_, err := repo.SoftDelete(context.Background(), created.ID, orgScope(1), &actor)
	require.NoError(t, err)

	// Gone from default reads.
	_, err = repo.GetByID(context.Background(), created.ID, orgScope(1))
	require.Error(t, err)
	assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))

	rows, err := repo.List(context.Background(), ListQuery{OrganizationID: orgScope(1)})
	require.NoError(t, err)
	assert.Empty(t, rows)

	// Still there for callers that opt into deleted rows.
	rows, err = repo.List(context.Background(), ListQuery{OrganizationID: orgScope(1), IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsActive)
	require.NotNil(t, rows[0].DeletedBy)
	assert.Equal(t, actor, *rows[0].DeletedBy)
	assert.True(t, rows[0].DeletedAt.Valid)
}

func TestSoftDeleteLeavesNoPartialState(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db)
	created := seedPatient(t, repo, 1, "Ana")

	// Force the delete statement to fail after the deactivation update.
	require.NoError(t, db.Callback().Delete().Before("gorm:delete").
		Register("reject_delete", func(tx *gorm.DB) {
			tx.AddError(errors.New("delete rejected"))
		}))

	_, err := repo.SoftDelete(context.Background(), created.ID, orgScope(1), nil)
	require.Error(t, err)

	// The row must not be left deactivated but undeleted.
	got, err := repo.GetByID(context.Background(), created.ID, orgScope(1))
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.DeletedBy)
}

func TestClassifyConflictOnDuplicateMembership(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.AutoMigrate(&model.Membership{}))

	first := model.Membership{UserID: 1, OrganizationID: 1, Role: model.RoleMember, IsActive: true}
	require.NoError(t, db.Create(&first).Error)

	// At most one membership row per (user, organization) pair; the second
	// insert violates the composite unique index and classifies as a
	// conflict, not a storage fault.
	dup := model.Membership{UserID: 1, OrganizationID: 1, Role: model.RoleOwner, IsActive: true}
	err := db.Create(&dup).Error
	require.Error(t, err)
	classified := Classify(err, "membership insert failed")
	assert.Equal(t, apperr.EConflict, apperr.ErrorCode(classified))
}

func TestSoftDeleteCrossTenantIsNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db)
	created := seedPatient(t, repo, 1, "Ana")

	_, err := repo.SoftDelete(context.Background(), created.ID, orgScope(2), nil)
	require.Error(t, err)
	assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))

	// The row is untouched for its own tenant.
	got, err := repo.GetByID(context.Background(), created.ID, orgScope(1))
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestBaseFiltersApplyToEveryRead(t *testing.T) {
	db := newTestDB(t)
	repo := New[model.Patient](db, func(q *gorm.DB) *gorm.DB {
		return q.Where("last_name = ?", "Kept")
	})

	actor := uint(1)
	kept, err := repo.Create(context.Background(), &model.Patient{FirstName: "Ana", LastName: "Kept"}, 1, &actor)
	require.NoError(t, err)
	dropped, err := repo.Create(context.Background(), &model.Patient{FirstName: "Leo", LastName: "Other"}, 1, &actor)
	require.NoError(t, err)

	rows, err := repo.List(context.Background(), ListQuery{OrganizationID: orgScope(1)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, kept.ID, rows[0].ID)

	_, err = repo.GetByID(context.Background(), dropped.ID, orgScope(1))
	require.Error(t, err)
	assert.Equal(t, apperr.ENotFound, apperr.ErrorCode(err))
}
