package auth_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	auth "github.com/norahq/go-auth"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// testConfig returns a config suitable for unit tests
func testConfig() *auth.EnvConfig {
	return &auth.EnvConfig{
		SigningKeys:        []string{"test-signing-key"},
		SigningMethod:      "HS256",
		AccessTokenTTL:     30 * time.Minute,
		RefreshTokenTTL:    168 * time.Hour,
		VerificationSalt:   "email-verification",
		VerificationMaxAge: time.Hour,
		ContextKey:         "user",
		AuthScheme:         "Bearer",
		Issuer:             "test-issuer",
		Audience:           []string{"test-audience"},
	}
}

// testIdentity implements auth.Identity
type testIdentity struct {
	id            string
	email         string
	role          string
	emailVerified bool
}

func (t testIdentity) ID() string          { return t.id }
func (t testIdentity) Email() string       { return t.email }
func (t testIdentity) Role() string        { return t.role }
func (t testIdentity) EmailVerified() bool { return t.emailVerified }

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// MockUserTracker implements auth.UserTracker
type MockUserTracker struct {
	mock.Mock
}

func (m *MockUserTracker) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUserTracker) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserTracker) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockIdentityProvider implements auth.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, email, password string) (auth.Identity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByEmail(ctx context.Context, email string) (auth.Identity, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.Identity), args.Error(1)
}

// MockUsers implements auth.Users. The embedded interface satisfies the
// repository surface; only the methods exercised by tests are mocked.
type MockUsers struct {
	auth.Users
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*auth.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	args := m.Called(ctx, tx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *auth.User) (*auth.User, error) {
	args := m.Called(ctx, tx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockUsers) MarkEmailVerified(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockRepositoryManager implements auth.RepositoryManager backed by mocks.
// RunInTx executes the callback directly so transactional handlers can be
// tested without a database.
type MockRepositoryManager struct {
	users       *MockUsers
	revocations auth.Revocations
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() auth.Users { return m.users }

func (m *MockRepositoryManager) Revocations() auth.Revocations { return m.revocations }

// MockAuthenticator implements auth.Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*auth.TokenPair, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenPair), args.Error(1)
}

func (m *MockAuthenticator) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenPair), args.Error(1)
}

func (m *MockAuthenticator) Logout(ctx context.Context, accessToken, refreshToken string) error {
	args := m.Called(ctx, accessToken, refreshToken)
	return args.Error(0)
}

func (m *MockAuthenticator) VerifyEmail(ctx context.Context, token string) (*auth.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockAuthenticator) IdentityFromToken(ctx context.Context, raw string) (auth.Identity, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(auth.Identity), args.Error(1)
}

// notFoundErr mirrors the persistence layer's record-not-found shape
func notFoundErr() error {
	return errors.New("record not found", errors.CategoryNotFound)
}
