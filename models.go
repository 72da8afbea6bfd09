package auth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role. Role comparison is exact-string match on
// this closed, server defined vocabulary; values are never user supplied.
type UserRole = string

const (
	// RoleAdmin can manage users and always passes the access gate
	RoleAdmin UserRole = "ADMIN"
	// RoleAgent is the standard operator role
	RoleAgent UserRole = "AGENT"
)

// ValidRole checks the role against the closed vocabulary
func ValidRole(r UserRole) bool {
	switch r {
	case RoleAdmin, RoleAgent:
		return true
	default:
		return false
	}
}

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role           UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	FullName       string     `bun:"full_name,notnull" json:"full_name,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	IsActive       bool       `bun:"is_active" json:"is_active"`
	EmailVerified  bool       `bun:"is_email_verified" json:"is_email_verified"`
	LoginAttempts  int        `bun:"login_attempts" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"-"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"-"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// NormalizeEmail lowercases and trims an email for lookups and storage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// PublicUser is the registration/profile response shape; it never
// carries the password hash.
type PublicUser struct {
	ID            string     `json:"id"`
	FullName      string     `json:"full_name"`
	Email         string     `json:"email"`
	Role          UserRole   `json:"role"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Public projects the user into its API-safe shape
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID.String(),
		FullName:      u.FullName,
		Email:         u.Email,
		Role:          u.Role,
		IsActive:      u.IsActive,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

// TokenBlacklist records a revoked token. The raw token is never stored;
// entries key on a SHA-256 fingerprint. Rows past expires_at are dead
// weight only, the matching JWT has expired on its own, so purging is
// maintenance rather than a correctness requirement.
type TokenBlacklist struct {
	bun.BaseModel `bun:"table:token_blacklist,alias:tbl"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	TokenHash     string     `bun:"token_hash,notnull,unique" json:"-"`
	TokenKind     TokenKind  `bun:"token_kind,notnull" json:"token_kind,omitempty"`
	UserID        string     `bun:"user_id,notnull" json:"user_id,omitempty"`
	Reason        string     `bun:"reason" json:"reason,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
