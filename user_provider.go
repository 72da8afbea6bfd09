package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// AccountRegistrerer is the interface we need to handle new user registrations
type AccountRegistrerer interface {
	RegisterUser(ctx context.Context, fullName, email, password string) (*User, error)
}

// UserTracker is a store we can use to retrieve users
type UserTracker interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
}

// UserProvider handles users
type UserProvider struct {
	store  UserTracker
	logger Logger
}

// MaxLoginAttempts is the maximun number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserTracker) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

// VerifyIdentity will find the user, compare to the password, and return
// the identity. Unknown emails and wrong passwords fail identically with
// ErrInvalidCredentials so the response never reveals which addresses
// are registered. The inactive-account gate is separate and only applies
// after the credentials check out.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if user.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			user.LoginAttempts = 0
		}
	}

	// if we have too many attempts in the given window, cool off!
	if user.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := u.store.TrackAttemptedLogin(ctx, user); err2 != nil {
			u.logger.Error("failed to track login attempt", "error", err2)
		}

		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	if err := u.store.TrackSuccessfulLogin(ctx, user); err != nil {
		u.logger.Error("failed to track successful login", "error", err)
	}

	return identityFromUser(user), nil
}

// FindIdentityByEmail looks up an identity without a credential check
func (u *UserProvider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	user, err := u.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	return identityFromUser(user), nil
}

type authIdentity struct {
	id            string
	email         string
	role          UserRole
	emailVerified bool
}

func (a authIdentity) ID() string { return a.id }

func (a authIdentity) Email() string { return a.email }

func (a authIdentity) Role() string { return a.role }

func (a authIdentity) EmailVerified() bool { return a.emailVerified }

var _ Identity = authIdentity{}

func identityFromUser(user *User) authIdentity {
	return authIdentity{
		id:            user.ID.String(),
		email:         user.Email,
		role:          user.Role,
		emailVerified: user.EmailVerified,
	}
}
