package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/authcore/internal/database"
	"github.com/prudhvinik1/authcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresAccountRepository_CreateAndLookup(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresAccountRepository(pool)
	ctx := context.Background()

	account := newTestAccount()
	require.NoError(t, repo.Create(ctx, account))
	defer cleanupTestAccounts(t, pool, ctx, account.Email)

	_, err := uuid.Parse(account.ID)
	require.NoError(t, err, "store assigns a uuid id")

	byID, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Username, byID.Username)
	assert.Equal(t, "test-hash", byID.PasswordHash)
	assert.True(t, byID.IsActive)
	assert.False(t, byID.IsVerified)
	assert.Nil(t, byID.LastLogin)

	byEmail, err := repo.GetByEmail(ctx, account.Email)
	require.NoError(t, err)
	assert.Equal(t, account.ID, byEmail.ID)

	for _, identifier := range []string{account.Username, account.Email} {
		found, err := repo.GetByUsernameOrEmail(ctx, identifier)
		require.NoError(t, err)
		assert.Equal(t, account.ID, found.ID)
	}
}

func TestPostgresAccountRepository_NotFound(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresAccountRepository(pool)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByEmail(ctx, "nobody-"+uuid.NewString()+"@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.UpdateLastLogin(ctx, uuid.NewString(), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresAccountRepository_DuplicateEmailReturnsFirst(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresAccountRepository(pool)
	ctx := context.Background()

	first := newTestAccount()
	first.CreatedAt = time.Now().Add(-time.Minute).UTC()
	require.NoError(t, repo.Create(ctx, first))
	defer cleanupTestAccounts(t, pool, ctx, first.Email)

	// the schema has no unique constraint on email
	second := newTestAccount()
	second.Email = first.Email
	require.NoError(t, repo.Create(ctx, second))

	found, err := repo.GetByUsernameOrEmail(ctx, first.Email)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestPostgresAccountRepository_UpdateLastLoginNeverMovesBack(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresAccountRepository(pool)
	ctx := context.Background()

	account := newTestAccount()
	require.NoError(t, repo.Create(ctx, account))
	defer cleanupTestAccounts(t, pool, ctx, account.Email)

	later := time.Now().UTC().Truncate(time.Microsecond)
	earlier := later.Add(-time.Hour)

	require.NoError(t, repo.UpdateLastLogin(ctx, account.ID, later))
	require.NoError(t, repo.UpdateLastLogin(ctx, account.ID, earlier))

	stored, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.True(t, stored.LastLogin.Equal(later), "got %v want %v", stored.LastLogin, later)
}

func TestPostgresAccountRepository_UpdateProfile(t *testing.T) {
	pool := getTestPool(t)
	repo := NewPostgresAccountRepository(pool)
	ctx := context.Background()

	account := newTestAccount()
	require.NoError(t, repo.Create(ctx, account))
	defer cleanupTestAccounts(t, pool, ctx, account.Email)

	name := "Alice Liddell"
	updated, err := repo.UpdateProfile(ctx, account.ID, models.ProfileUpdate{FullName: &name})
	require.NoError(t, err)
	require.NotNil(t, updated.FullName)
	assert.Equal(t, name, *updated.FullName)
	assert.Nil(t, updated.ProfileBio)

	bio := "down the rabbit hole"
	updated, err = repo.UpdateProfile(ctx, account.ID, models.ProfileUpdate{ProfileBio: &bio})
	require.NoError(t, err)
	assert.Equal(t, name, *updated.FullName, "nil field keeps stored value")
	assert.Equal(t, bio, *updated.ProfileBio)

	_, err = repo.UpdateProfile(ctx, uuid.NewString(), models.ProfileUpdate{FullName: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func newTestAccount() *models.Account {
	suffix := uuid.NewString()
	return &models.Account{
		Username:     "user-" + suffix,
		Email:        "test-" + suffix + "@example.com",
		PasswordHash: "test-hash",
		CreatedAt:    time.Now().UTC(),
		IsActive:     true,
	}
}

// getTestPool connects to TEST_DATABASE_URL and applies migrations.
func getTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, url)
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(pool.Close)

	_, err = database.Migrate(ctx, pool)
	require.NoError(t, err, "Failed to migrate test database")

	return pool
}

func cleanupTestAccounts(t *testing.T, pool *pgxpool.Pool, ctx context.Context, email string) {
	if _, err := pool.Exec(ctx, `DELETE FROM accounts WHERE email = $1`, email); err != nil {
		t.Logf("Warning: failed to cleanup test accounts: %v", err)
	}
}
