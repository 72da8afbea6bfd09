package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated principal
type Identity interface {
	ID() string
	Email() string
	Role() string
	EmailVerified() bool
}

// TokenKind discriminates access tokens from refresh tokens. A token of
// one kind must never validate where the other is expected.
type TokenKind = string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenPair is what a successful login or refresh returns
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenService issues and validates bearer tokens
type TokenService interface {
	IssueAccess(identity Identity) (string, time.Time, error)
	IssueRefresh(identity Identity) (string, time.Time, error)
	Validate(tokenString string, expected TokenKind) (AuthClaims, error)
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	VerifyEmail(ctx context.Context, token string) (*User, error)
	IdentityFromToken(ctx context.Context, raw string) (Identity, error)
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// RevocationStore is the denylist consulted on every protected request.
// A token matching a non expired entry is rejected even when its
// signature and expiry are valid.
type RevocationStore interface {
	Add(ctx context.Context, token string, kind TokenKind, ownerID string, expiresAt time.Time, reason string) error
	IsRevoked(ctx context.Context, token string) (bool, error)
	PurgeExpired(ctx context.Context) (int, error)
}

// Config holds auth options
type Config interface {
	GetSigningKeys() []string
	GetSigningMethod() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetVerificationSalt() string
	GetVerificationMaxAge() time.Duration
	GetContextKey() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
