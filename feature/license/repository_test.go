package license_test

import (
	"context"
	"regexp"
	"testing"

	"license-reconciler/core/database"
	"license-reconciler/feature/license"
	"license-reconciler/feature/license/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newRepo(t *testing.T) *license.Repository {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.License{},
		&models.ReviewItem{},
		&models.ConsolidationDecision{},
	))
	return license.NewRepository(db)
}

func strPtr(s string) *string { return &s }

func TestCreateAndFindByExternalKeys(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	countID := 9
	lic := &models.License{
		Key:             "LIC-100",
		Status:          models.StatusActive,
		DBA:             "Acme Widgets",
		ExternalAppID:   strPtr("app-1"),
		ExternalEmail:   "billing@acme.com",
		ExternalCountID: &countID,
	}
	require.NoError(t, repo.Create(ctx, lic))

	t.Run("by app id", func(t *testing.T) {
		got, err := repo.FindByExternalAppID(ctx, "app-1")
		assert.NoError(t, err)
		if assert.NotNil(t, got) {
			assert.Equal(t, "LIC-100", got.Key)
		}
	})
	t.Run("by email", func(t *testing.T) {
		got, err := repo.FindByExternalEmail(ctx, "billing@acme.com")
		assert.NoError(t, err)
		assert.NotNil(t, got)
	})
	t.Run("by count id", func(t *testing.T) {
		got, err := repo.FindByExternalCountID(ctx, 9)
		assert.NoError(t, err)
		assert.NotNil(t, got)
	})
	t.Run("miss returns nil without error", func(t *testing.T) {
		got, err := repo.FindByExternalAppID(ctx, "nope")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestCreateRejectsUnknownStatus(t *testing.T) {
	repo := newRepo(t)
	err := repo.Create(context.Background(), &models.License{Key: "LIC-1", Status: "frozen"})
	assert.Error(t, err)
}

func TestUpdateFieldsEmptyMapIsNoOp(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	lic := &models.License{Key: "LIC-1", Status: models.StatusActive, DBA: "Acme"}
	require.NoError(t, repo.Create(ctx, lic))
	before, err := repo.FindByID(ctx, lic.ID)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateFields(ctx, lic.ID, map[string]any{}))

	after, err := repo.FindByID(ctx, lic.ID)
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
}

func TestFindLicensesFilter(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.License{Key: "L1", Status: models.StatusActive, Product: "crm", DBA: "Acme Widgets"}))
	require.NoError(t, repo.Create(ctx, &models.License{Key: "L2", Status: models.StatusExpired, Product: "crm", DBA: "Zenith"}))
	require.NoError(t, repo.Create(ctx, &models.License{
		Key: "L3", Status: models.StatusActive, Product: "pos", DBA: "Acme POS",
		ExternalAppID: strPtr("app-3"),
	}))

	t.Run("by status", func(t *testing.T) {
		out, err := repo.FindLicenses(ctx, license.Filter{Status: models.StatusActive})
		assert.NoError(t, err)
		assert.Len(t, out, 2)
	})
	t.Run("by dba substring", func(t *testing.T) {
		out, err := repo.FindLicenses(ctx, license.Filter{DBA: "Acme"})
		assert.NoError(t, err)
		assert.Len(t, out, 2)
	})
	t.Run("unlinked only", func(t *testing.T) {
		out, err := repo.FindLicenses(ctx, license.Filter{UnlinkedOnly: true})
		assert.NoError(t, err)
		assert.Len(t, out, 2)
	})
	t.Run("limit", func(t *testing.T) {
		out, err := repo.FindLicenses(ctx, license.Filter{Limit: 1})
		assert.NoError(t, err)
		assert.Len(t, out, 1)
	})
}

func TestReviewQueueLifecycle(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	item := &models.ReviewItem{
		Scope:           "cross-system",
		Members:         []byte(`[{"system":"external","id":"app-1"}]`),
		ConfidenceScore: 82,
		MatchReasons:    []byte(`["email exact match"]`),
	}
	require.NoError(t, repo.QueueReview(ctx, item))
	assert.Equal(t, models.ReviewPending, item.Status)

	pending, err := repo.PendingReviews(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.ResolveReview(ctx, item.ID, models.ReviewApproved))

	pending, err = repo.PendingReviews(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// The SQL shape matters for the uniqueIndex on external_app_id: the update
// must be keyed on the primary key, never on the external link.
func TestUpdateFieldsSQLShape(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE `licenses` SET")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := license.NewRepository(db)
	err = repo.UpdateFields(context.Background(), 7, map[string]any{"status": "cancel"})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
