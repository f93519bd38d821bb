package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))

	user := &domain.User{Username: "frodo", PasswordHash: "hash"}
	id, err := repo.Create(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.False(t, user.CreatedAt.IsZero())

	byName, err := repo.GetByUsername(ctx, "frodo")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)
	assert.Equal(t, "frodo", byName.Username)
	assert.Equal(t, "hash", byName.PasswordHash)

	byID, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "frodo", byID.Username)
}

func TestUserRepositoryGetUnknown(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))

	_, err := repo.GetByUsername(ctx, "nobody")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = repo.GetByID(ctx, 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestUserRepositoryDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))

	_, err := repo.Create(ctx, &domain.User{Username: "sam", PasswordHash: "a"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.User{Username: "sam", PasswordHash: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestUserRepositoryGetByUsernameFold(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))

	_, err := repo.Create(ctx, &domain.User{Username: "Pippin", PasswordHash: "a"})
	require.NoError(t, err)

	folded, err := repo.GetByUsernameFold(ctx, "pIPPIN")
	require.NoError(t, err)
	assert.Equal(t, "Pippin", folded.Username)

	// exact lookup stays case-sensitive
	_, err = repo.GetByUsername(ctx, "pIPPIN")
	require.Error(t, err)
}

func TestUserRepositoryListUsernames(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))

	for _, name := range []string{"merry", "pippin", "sam"} {
		_, err := repo.Create(ctx, &domain.User{Username: name, PasswordHash: "x"})
		require.NoError(t, err)
	}

	names, err := repo.ListUsernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"merry", "pippin", "sam"}, names)
}
