package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bookshelf/internal/repository/sqlite"
)

func newUserService(t *testing.T) UserService {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	require.NoError(t, users.Init(context.Background()))
	return NewUserService(users)
}

func TestUserServiceRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	registered, err := svc.Register(ctx, "frodo", "the-ring-is-heavy")
	require.NoError(t, err)
	assert.Equal(t, "frodo", registered.Username)
	assert.Empty(t, registered.PasswordHash)

	user, err := svc.Authenticate(ctx, "frodo", "the-ring-is-heavy")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.Empty(t, user.PasswordHash)
}

func TestUserServiceStoresHashedPassword(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	require.NoError(t, users.Init(ctx))
	svc := NewUserService(users)

	_, err = svc.Register(ctx, "frodo", "the-ring-is-heavy")
	require.NoError(t, err)

	stored, err := users.GetByUsername(ctx, "frodo")
	require.NoError(t, err)
	assert.NotEqual(t, "the-ring-is-heavy", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("the-ring-is-heavy")))
}

func TestUserServiceAuthenticateFailuresLookAlike(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, "frodo", "the-ring-is-heavy")
	require.NoError(t, err)

	_, wrongPassword := svc.Authenticate(ctx, "frodo", "wrong")
	_, unknownUser := svc.Authenticate(ctx, "sauron", "the-ring-is-heavy")

	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownUser, ErrInvalidCredentials)
}

func TestUserServiceAuthenticateCaseSensitive(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, "Frodo", "the-ring-is-heavy")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "frodo", "the-ring-is-heavy")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserServiceRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, "", "password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username is required")

	_, err = svc.Register(ctx, "frodo", "   ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password is required")
}

func TestUserServiceRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, "frodo", "password")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "frodo", "another")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)
}

func TestUserServiceFindProfile(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, "Gandalf", "you-shall-not-pass")
	require.NoError(t, err)

	profile, err := svc.FindProfile(ctx, "gANDALF")
	require.NoError(t, err)
	assert.Equal(t, "Gandalf", profile.Username)
	assert.Empty(t, profile.PasswordHash)

	_, err = svc.FindProfile(ctx, "saruman")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.FindProfile(ctx, "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserServiceListUsernames(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	for _, name := range []string{"aragorn", "boromir"} {
		_, err := svc.Register(ctx, name, "password")
		require.NoError(t, err)
	}

	names, err := svc.ListUsernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"aragorn", "boromir"}, names)
}
