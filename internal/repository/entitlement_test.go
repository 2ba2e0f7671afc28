package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umuco/heritage-gateway/internal/models"
	"github.com/umuco/heritage-gateway/internal/storage"
)

// setupTestDB connects to the test database, skipping when none is
// reachable. Set TEST_DATABASE_URL to point somewhere else.
func setupTestDB(t *testing.T) *storage.Postgres {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=gateway password=gateway dbname=heritage_test port=5432 sslmode=disable"
	}

	db, err := storage.NewPostgres(dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}

	if err := db.Ping(context.Background()); err != nil {
		t.Skipf("postgres not available: %v", err)
	}

	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func insertRedemption(t *testing.T, db *storage.Postgres, r *models.Redemption) {
	t.Helper()
	require.NoError(t, db.DB.Create(r).Error)
	t.Cleanup(func() {
		db.DB.Where("user_id = ?", r.UserID).Delete(&models.Redemption{})
	})
}

func TestFindActiveRedemption_AgencyWideMatchesAnyContent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEntitlementRepository(db)

	userID := uuid.New()
	insertRedemption(t, db, &models.Redemption{
		UserID:     userID,
		CodeID:     uuid.New(),
		AgencyWide: true,
		ExpiresAt:  time.Now().Add(time.Hour),
	})

	ctx := context.Background()
	now := time.Now()

	for _, content := range []struct{ typ, id string }{
		{"stories", uuid.NewString()},
		{"tours", uuid.NewString()},
	} {
		got, err := repo.FindActiveRedemption(ctx, userID.String(), content.typ, content.id, now)
		require.NoError(t, err)
		require.NotNil(t, got, "agency-wide grant should match %s/%s", content.typ, content.id)
		assert.True(t, got.AgencyWide)
	}
}

func TestFindActiveRedemption_ContentScopedDoesNotLeak(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEntitlementRepository(db)

	userID := uuid.New()
	storyID := uuid.NewString()
	insertRedemption(t, db, &models.Redemption{
		UserID:      userID,
		CodeID:      uuid.New(),
		ContentType: "stories",
		ContentID:   storyID,
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	ctx := context.Background()
	now := time.Now()

	got, err := repo.FindActiveRedemption(ctx, userID.String(), "stories", storyID, now)
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = repo.FindActiveRedemption(ctx, userID.String(), "stories", uuid.NewString(), now)
	require.NoError(t, err)
	assert.Nil(t, got, "a content-scoped redemption must not match other content")
}

func TestFindActiveRedemption_ExpiredAgencyWideDoesNotMatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEntitlementRepository(db)

	userID := uuid.New()
	insertRedemption(t, db, &models.Redemption{
		UserID:     userID,
		CodeID:     uuid.New(),
		AgencyWide: true,
		ExpiresAt:  time.Now().Add(-time.Minute),
	})

	got, err := repo.FindActiveRedemption(context.Background(), userID.String(), "stories", uuid.NewString(), time.Now())
	require.NoError(t, err)
	assert.Nil(t, got)
}
