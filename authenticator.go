package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// Auther orchestrates the identity provider, token service, verification
// codec and revocation store behind the Authenticator interface.
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	verifier     *VerificationCodec
	revocations  RevocationStore
	users        Users
	logger       Logger
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, users Users, revocations RevocationStore, cfg Config) *Auther {
	logger := defLogger{}

	return &Auther{
		provider:     provider,
		users:        users,
		revocations:  revocations,
		tokenService: NewTokenService(cfg, logger),
		verifier:     NewVerificationCodec(cfg),
		logger:       logger,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithTokenService overrides the default token service
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Verifier returns the email verification codec
func (s *Auther) Verifier() *VerificationCodec {
	return s.verifier
}

// Login verifies credentials and issues an access/refresh token pair
func (s *Auther) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Warn("Login verify identity failed", "email", NormalizeEmail(email), "error", err)
		return nil, err
	}

	return s.issuePair(identity)
}

// Refresh exchanges a valid, unrevoked refresh token for a new pair.
// The used refresh token is revoked so it cannot be replayed.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	revoked, err := s.revocations.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check token revocation")
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	claims, err := s.tokenService.Validate(refreshToken, TokenKindRefresh)
	if err != nil {
		return nil, err
	}

	identity, err := s.identityByID(ctx, claims.UserID())
	if err != nil {
		return nil, err
	}

	pair, err := s.issuePair(identity)
	if err != nil {
		return nil, err
	}

	if err := s.revocations.Add(ctx, refreshToken, TokenKindRefresh, claims.UserID(), claims.Expires(), "rotated"); err != nil {
		s.logger.Error("Refresh failed to revoke rotated token", "error", err)
	}

	return pair, nil
}

// Logout records the presented tokens in the revocation store. The
// refresh token is optional.
func (s *Auther) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.tokenService.Validate(accessToken, TokenKindAccess)
	if err != nil {
		return err
	}

	if err := s.revocations.Add(ctx, accessToken, TokenKindAccess, claims.UserID(), claims.Expires(), "logout"); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke access token")
	}

	if refreshToken == "" {
		return nil
	}

	refreshClaims, err := s.tokenService.Validate(refreshToken, TokenKindRefresh)
	if err != nil {
		// an unparseable refresh token cannot be replayed, nothing to deny
		s.logger.Warn("Logout ignoring invalid refresh token", "error", err)
		return nil
	}

	if err := s.revocations.Add(ctx, refreshToken, TokenKindRefresh, refreshClaims.UserID(), refreshClaims.Expires(), "logout"); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke refresh token")
	}

	return nil
}

// VerifyEmail resolves a verification token and flips the user's
// verified flag. Verifying an already verified address is idempotent.
func (s *Auther) VerifyEmail(ctx context.Context, token string) (*User, error) {
	email, err := s.verifier.Verify(token, 0)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user for verification")
	}

	if user.EmailVerified {
		return user, nil
	}

	if err := s.users.MarkEmailVerified(ctx, email); err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to mark email verified")
	}

	user.EmailVerified = true
	return user, nil
}

// IdentityFromToken validates an access token, consults the denylist,
// and resolves the current identity.
func (s *Auther) IdentityFromToken(ctx context.Context, raw string) (Identity, error) {
	revoked, err := s.revocations.IsRevoked(ctx, raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check token revocation")
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	claims, err := s.tokenService.Validate(raw, TokenKindAccess)
	if err != nil {
		return nil, err
	}

	return s.identityByID(ctx, claims.UserID())
}

func (s *Auther) issuePair(identity Identity) (*TokenPair, error) {
	access, expiresAt, err := s.tokenService.IssueAccess(identity)
	if err != nil {
		s.logger.Error("failed to issue access token", "error", err)
		return nil, err
	}

	refresh, _, err := s.tokenService.IssueRefresh(identity)
	if err != nil {
		s.logger.Error("failed to issue refresh token", "error", err)
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Auther) identityByID(ctx context.Context, id string) (Identity, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user")
	}

	if !user.IsActive {
		return nil, ErrInactiveAccount
	}

	return identityFromUser(user), nil
}

var _ Authenticator = (*Auther)(nil)
