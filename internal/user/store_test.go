package user

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marginalia/app/internal/db"
)

func setupStore(t *testing.T) *GormStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "users.db")
	gormDB, err := db.Open(db.Options{Path: path})
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, db.Close(gormDB))
	})

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	require.NoError(t, Migrate(context.Background(), gormDB, logger))

	store, err := NewStore(gormDB, logger)
	require.NoError(t, err)
	return store
}

func TestCreateAndAuthenticate(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, "editor", "editor@example.com", "s3cret", true)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", created.PasswordHash, "password must be stored hashed")

	account, err := store.Authenticate(ctx, "editor", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
	assert.True(t, account.IsAdmin)
}

func TestAuthenticateRejectsWrongPassword(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "editor", "", "s3cret", false)
	require.NoError(t, err)

	_, err = store.Authenticate(ctx, "editor", "wrong")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidCredentials))
}

func TestAuthenticateRejectsUnknownUser(t *testing.T) {
	t.Parallel()

	store := setupStore(t)

	_, err := store.Authenticate(context.Background(), "ghost", "anything")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidCredentials))
}

func TestGetByIDReturnsNilForMissingUser(t *testing.T) {
	t.Parallel()

	store := setupStore(t)

	account, err := store.GetByID(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, account)
}

func TestEnsureAdminSeedsOnce(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureAdmin(ctx, "root", "root@example.com", "changeme"))
	require.NoError(t, store.EnsureAdmin(ctx, "root", "root@example.com", "changeme"))

	account, err := store.Authenticate(ctx, "root", "changeme")
	require.NoError(t, err)
	assert.True(t, account.IsAdmin)
}

func TestEnsureAdminSkipsBlankCredentials(t *testing.T) {
	t.Parallel()

	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureAdmin(ctx, "", "", ""))

	_, err := store.Authenticate(ctx, "", "")
	require.Error(t, err)
}
