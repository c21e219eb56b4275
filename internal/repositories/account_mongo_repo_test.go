package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prudhvinik1/authcore/internal/database"
	"github.com/prudhvinik1/authcore/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoAccountRepository_CreateAndLookup(t *testing.T) {
	repo := getTestMongoRepo(t)
	ctx := context.Background()

	account := newTestAccount()
	require.NoError(t, repo.Create(ctx, account))

	_, err := primitive.ObjectIDFromHex(account.ID)
	require.NoError(t, err, "store assigns an ObjectID")

	byID, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Email, byID.Email)
	assert.Equal(t, "test-hash", byID.PasswordHash)

	for _, identifier := range []string{account.Username, account.Email} {
		found, err := repo.GetByUsernameOrEmail(ctx, identifier)
		require.NoError(t, err)
		assert.Equal(t, account.ID, found.ID)
	}

	_, err = repo.GetByEmail(ctx, account.Username)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByID(ctx, "zz")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetByID(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoAccountRepository_StoresPasswordUnderOriginalField(t *testing.T) {
	repo := getTestMongoRepo(t)
	ctx := context.Background()

	account := newTestAccount()
	require.NoError(t, repo.Create(ctx, account))

	var raw bson.M
	err := repo.coll.FindOne(ctx, bson.M{"email": account.Email}).Decode(&raw)
	require.NoError(t, err)
	assert.Equal(t, "test-hash", raw["password"])
}

func TestMongoAccountRepository_DuplicateEmailReturnsFirst(t *testing.T) {
	repo := getTestMongoRepo(t)
	ctx := context.Background()

	first := newTestAccount()
	require.NoError(t, repo.Create(ctx, first))
	second := newTestAccount()
	second.Email = first.Email
	require.NoError(t, repo.Create(ctx, second))

	found, err := repo.GetByEmail(ctx, first.Email)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}

func TestMongoAccountRepository_UpdateLastLoginNeverMovesBack(t *testing.T) {
	repo := getTestMongoRepo(t)
	ctx := context.Background()

	account := newTestAccount()
	require.NoError(t, repo.Create(ctx, account))

	later := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.UpdateLastLogin(ctx, account.ID, later))
	require.NoError(t, repo.UpdateLastLogin(ctx, account.ID, later.Add(-time.Hour)))

	stored, err := repo.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	assert.True(t, stored.LastLogin.Equal(later))

	err = repo.UpdateLastLogin(ctx, primitive.NewObjectID().Hex(), later)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoAccountRepository_UpdateProfile(t *testing.T) {
	repo := getTestMongoRepo(t)
	ctx := context.Background()

	account := newTestAccount()
	require.NoError(t, repo.Create(ctx, account))

	name := "Alice"
	updated, err := repo.UpdateProfile(ctx, account.ID, models.ProfileUpdate{FullName: &name})
	require.NoError(t, err)
	require.NotNil(t, updated.FullName)
	assert.Equal(t, name, *updated.FullName)

	unchanged, err := repo.UpdateProfile(ctx, account.ID, models.ProfileUpdate{})
	require.NoError(t, err)
	assert.Equal(t, name, *unchanged.FullName)

	_, err = repo.UpdateProfile(ctx, primitive.NewObjectID().Hex(), models.ProfileUpdate{FullName: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

// getTestMongoRepo connects to TEST_MONGO_URL and uses a throwaway database
// that is dropped when the test ends.
func getTestMongoRepo(t *testing.T) *MongoAccountRepository {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URL")
	if uri == "" {
		t.Skip("TEST_MONGO_URL not set")
	}

	ctx := context.Background()
	client, err := database.NewMongoClient(ctx, uri)
	require.NoError(t, err, "Failed to connect to test mongo")

	db := client.Database("authcore_test_" + uuid.NewString()[:8])
	t.Cleanup(func() {
		if err := db.Drop(context.Background()); err != nil {
			t.Logf("Warning: failed to drop test database: %v", err)
		}
		_ = client.Disconnect(context.Background())
	})

	return NewMongoAccountRepository(db)
}
