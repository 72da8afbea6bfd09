package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	auth "github.com/norahq/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func activeUser(t *testing.T, password string) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	return &auth.User{
		ID:           uuid.New(),
		Role:         auth.RoleAgent,
		FullName:     "Alice Example",
		Email:        "alice@example.com",
		PasswordHash: hash,
		IsActive:     true,
	}
}

func TestUserProvider_VerifyIdentity(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the identity on valid credentials", func(t *testing.T) {
		store := &MockUserTracker{}
		user := activeUser(t, "s3cure-password")

		store.On("GetByEmail", ctx, "alice@example.com").Return(user, nil).Once()
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil).Once()

		provider := auth.NewUserProvider(store)

		identity, err := provider.VerifyIdentity(ctx, "alice@example.com", "s3cure-password")
		require.NoError(t, err)

		assert.Equal(t, user.ID.String(), identity.ID())
		assert.Equal(t, "alice@example.com", identity.Email())
		assert.Equal(t, auth.RoleAgent, identity.Role())
		assert.False(t, identity.EmailVerified())

		store.AssertExpectations(t)
	})

	t.Run("normalizes the email before lookup", func(t *testing.T) {
		store := &MockUserTracker{}
		user := activeUser(t, "s3cure-password")

		store.On("GetByEmail", ctx, "alice@example.com").Return(user, nil).Once()
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil).Once()

		provider := auth.NewUserProvider(store)

		_, err := provider.VerifyIdentity(ctx, "  Alice@Example.COM ", "s3cure-password")
		require.NoError(t, err)

		store.AssertExpectations(t)
	})

	t.Run("unknown email and wrong password fail identically", func(t *testing.T) {
		store := &MockUserTracker{}
		user := activeUser(t, "s3cure-password")

		store.On("GetByEmail", ctx, "alice@example.com").Return(user, nil).Once()
		store.On("GetByEmail", ctx, "nobody@example.com").Return(nil, notFoundErr()).Once()
		store.On("TrackAttemptedLogin", ctx, user).Return(nil).Once()

		provider := auth.NewUserProvider(store)

		_, unknownErr := provider.VerifyIdentity(ctx, "nobody@example.com", "s3cure-password")
		_, wrongErr := provider.VerifyIdentity(ctx, "alice@example.com", "wrong-password")

		assert.ErrorIs(t, unknownErr, auth.ErrInvalidCredentials)
		assert.ErrorIs(t, wrongErr, auth.ErrInvalidCredentials)

		// the response must not reveal which addresses are registered
		assert.Equal(t, unknownErr.Error(), wrongErr.Error())

		store.AssertExpectations(t)
	})

	t.Run("inactive account is rejected after the credentials check", func(t *testing.T) {
		store := &MockUserTracker{}
		user := activeUser(t, "s3cure-password")
		user.IsActive = false

		store.On("GetByEmail", ctx, "alice@example.com").Return(user, nil).Once()

		provider := auth.NewUserProvider(store)

		_, err := provider.VerifyIdentity(ctx, "alice@example.com", "s3cure-password")
		assert.ErrorIs(t, err, auth.ErrInactiveAccount)

		store.AssertExpectations(t)
	})

	t.Run("inactive account with wrong password fails as invalid credentials", func(t *testing.T) {
		store := &MockUserTracker{}
		user := activeUser(t, "s3cure-password")
		user.IsActive = false

		store.On("GetByEmail", ctx, "alice@example.com").Return(user, nil).Once()
		store.On("TrackAttemptedLogin", ctx, user).Return(nil).Once()

		provider := auth.NewUserProvider(store)

		_, err := provider.VerifyIdentity(ctx, "alice@example.com", "wrong-password")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		store.AssertExpectations(t)
	})

	t.Run("too many attempts inside the cooldown window", func(t *testing.T) {
		store := &MockUserTracker{}
		user := activeUser(t, "s3cure-password")
		lastAttempt := time.Now().Add(-time.Minute)
		user.LoginAttempts = auth.MaxLoginAttempts + 1
		user.LoginAttemptAt = &lastAttempt

		store.On("GetByEmail", ctx, "alice@example.com").Return(user, nil).Once()

		provider := auth.NewUserProvider(store)

		_, err := provider.VerifyIdentity(ctx, "alice@example.com", "s3cure-password")
		assert.ErrorIs(t, err, auth.ErrTooManyLoginAttempts)

		store.AssertExpectations(t)
	})

	t.Run("attempt counter resets after the cooldown period", func(t *testing.T) {
		store := &MockUserTracker{}
		user := activeUser(t, "s3cure-password")
		lastAttempt := time.Now().Add(-25 * time.Hour)
		user.LoginAttempts = auth.MaxLoginAttempts + 10
		user.LoginAttemptAt = &lastAttempt

		store.On("GetByEmail", ctx, "alice@example.com").Return(user, nil).Once()
		store.On("TrackSuccessfulLogin", ctx, user).Return(nil).Once()

		provider := auth.NewUserProvider(store)

		_, err := provider.VerifyIdentity(ctx, "alice@example.com", "s3cure-password")
		assert.NoError(t, err)

		store.AssertExpectations(t)
	})

	t.Run("tracking failures do not block the login", func(t *testing.T) {
		store := &MockUserTracker{}
		logger := &MockLogger{}
		user := activeUser(t, "s3cure-password")

		store.On("GetByEmail", ctx, "alice@example.com").Return(user, nil).Once()
		store.On("TrackSuccessfulLogin", ctx, user).Return(notFoundErr()).Once()
		logger.On("Error", mock.Anything, mock.Anything).Once()

		provider := auth.NewUserProvider(store).WithLogger(logger)

		_, err := provider.VerifyIdentity(ctx, "alice@example.com", "s3cure-password")
		assert.NoError(t, err)

		store.AssertExpectations(t)
		logger.AssertExpectations(t)
	})
}

func TestUserProvider_FindIdentityByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the identity", func(t *testing.T) {
		store := &MockUserTracker{}
		user := activeUser(t, "whatever")
		user.EmailVerified = true

		store.On("GetByEmail", ctx, "alice@example.com").Return(user, nil).Once()

		provider := auth.NewUserProvider(store)

		identity, err := provider.FindIdentityByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", identity.Email())
		assert.True(t, identity.EmailVerified())
	})

	t.Run("unknown email maps to identity not found", func(t *testing.T) {
		store := &MockUserTracker{}
		store.On("GetByEmail", ctx, "nobody@example.com").Return(nil, notFoundErr()).Once()

		provider := auth.NewUserProvider(store)

		_, err := provider.FindIdentityByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
	})

	t.Run("inactive account is rejected", func(t *testing.T) {
		store := &MockUserTracker{}
		user := activeUser(t, "whatever")
		user.IsActive = false

		store.On("GetByEmail", ctx, "alice@example.com").Return(user, nil).Once()

		provider := auth.NewUserProvider(store)

		_, err := provider.FindIdentityByEmail(ctx, "alice@example.com")
		assert.ErrorIs(t, err, auth.ErrInactiveAccount)
	})
}
