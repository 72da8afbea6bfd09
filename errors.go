package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced to API clients alongside the HTTP status
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeInactiveAccount    = "INACTIVE_ACCOUNT"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTokenKindMismatch  = "TOKEN_KIND_MISMATCH"
	TextCodeTokenRevoked       = "TOKEN_REVOKED"
	TextCodeInsufficientPrivs  = "INSUFFICIENT_PRIVILEGES"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeRegistrationFailed = "REGISTRATION_FAILED"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	TextCodeUnsupportedHash    = "UNSUPPORTED_HASH"
)

// ErrInvalidCredentials is returned for unknown emails AND wrong
// passwords. Same type, same message, so callers cannot probe which
// addresses are registered.
var ErrInvalidCredentials = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrInactiveAccount is the explicit, post-credential gate for disabled accounts
var ErrInactiveAccount = errors.New("account is inactive", errors.CategoryAuth).
	WithTextCode(TextCodeInactiveAccount).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired rejects tokens past their exp claim
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed rejects tokens that fail signature or shape checks
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenKindMismatch rejects e.g. a refresh token presented as an access token
var ErrTokenKindMismatch = errors.New("token kind mismatch", errors.CategoryAuth).
	WithTextCode(TextCodeTokenKindMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrTokenRevoked rejects denylisted tokens regardless of signature validity
var ErrTokenRevoked = errors.New("token has been revoked", errors.CategoryAuth).
	WithTextCode(TextCodeTokenRevoked).
	WithCode(errors.CodeUnauthorized)

// ErrInsufficientPrivileges is the access control gate denial
var ErrInsufficientPrivileges = errors.New("the user doesn't have enough privileges", errors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientPrivs).
	WithCode(errors.CodeForbidden)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailTaken translates unique-email violations, including races
// caught at the persistence layer
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrRegistrationFailed is the generic persistence failure during registration
var ErrRegistrationFailed = errors.New("failed to create user", errors.CategoryInternal).
	WithTextCode(TextCodeRegistrationFailed).
	WithCode(errors.CodeInternal)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrUnsupportedHash rejects password hashes in a format we cannot verify
var ErrUnsupportedHash = errors.New("unsupported password hash format", errors.CategoryInternal).
	WithTextCode(TextCodeUnsupportedHash)

// ErrUnableToFindSession is the error when a request carries no bearer token
var ErrUnableToFindSession = errors.New("missing or malformed JWT", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts enforces the login attempt cool down window
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// IsInternalError reports whether err is an infrastructure failure
// (store outage, signing failure) rather than an authentication verdict.
// Handlers use it to answer 500 instead of folding outages into the
// uniform credentials response.
func IsInternalError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.Category == errors.CategoryInternal || rich.Category == errors.CategoryOperation
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) && rich.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
