package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/ragify/internal/adapters/driven/auth"
	"github.com/custodia-labs/ragify/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragify/internal/core/domain"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(memory.NewRecordStore(t.TempDir()), auth.NewHasherWithCost(bcrypt.MinCost))
}

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	user, err := svc.Register(ctx, "  alice ", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.Positive(t, user.ID)

	got, err := svc.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	found, err := svc.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestUserService_Register_Errors(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)
	_, err := svc.Register(ctx, "alice", "pw")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = svc.Register(ctx, "   ", "pw")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Register(ctx, "bob", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUserService_Authenticate_SameErrorForEveryFailure(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)
	_, err := svc.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	for _, tc := range []struct{ user, pass string }{
		{"alice", "wrong"},
		{"mallory", "s3cret"},
		{"", ""},
	} {
		_, err := svc.Authenticate(ctx, tc.user, tc.pass)
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "%s/%s", tc.user, tc.pass)
		assert.NotErrorIs(t, err, domain.ErrNotFound)
	}
}

func TestUserService_Lookup_Missing(t *testing.T) {
	svc := newUserService(t)

	_, err := svc.Lookup(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Lookup(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
