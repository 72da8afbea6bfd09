package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents structured JWT claims
type AuthClaims interface {
	Subject() string
	UserID() string
	Role() string
	Kind() TokenKind
	HasRole(role string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims. The token_type
// claim discriminates access from refresh tokens; a token without it (or
// with the wrong kind) never passes Validate for the other kind.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string    `json:"uid,omitempty"`
	UserRole  UserRole  `json:"role,omitempty"`
	TokenKind TokenKind `json:"token_type,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Role returns the global role
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// Kind returns the token kind ("access" or "refresh")
func (c *JWTClaims) Kind() TokenKind {
	return c.TokenKind
}

// HasRole checks if the user has a specific role
func (c *JWTClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
