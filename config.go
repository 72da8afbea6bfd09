package auth

import (
	"time"

	"github.com/goliatone/go-errors"
)

// EnvConfig is the immutable configuration consumed by the auth core.
// It is loaded once at process start (see cmd/server) and passed into
// each component; there is no ambient global lookup.
type EnvConfig struct {
	// SigningKeys is an ordered list, newest first. Tokens are signed
	// with the first key and validated against each in turn, which
	// lets keys rotate without invalidating outstanding tokens.
	SigningKeys        []string      `env:"AUTH_SIGNING_KEYS" envSeparator:","`
	SigningMethod      string        `env:"AUTH_SIGNING_METHOD" envDefault:"HS256"`
	AccessTokenTTL     time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"30m"`
	RefreshTokenTTL    time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"168h"`
	VerificationSalt   string        `env:"AUTH_VERIFICATION_SALT" envDefault:"email-verification"`
	VerificationMaxAge time.Duration `env:"AUTH_VERIFICATION_MAX_AGE" envDefault:"1h"`
	ContextKey         string        `env:"AUTH_CONTEXT_KEY" envDefault:"user"`
	AuthScheme         string        `env:"AUTH_SCHEME" envDefault:"Bearer"`
	Issuer             string        `env:"AUTH_ISSUER" envDefault:"norahq"`
	Audience           []string      `env:"AUTH_AUDIENCE" envSeparator:","`

	DSN           string `env:"DATABASE_DSN" envDefault:"file::memory:?cache=shared"`
	ListenAddress string `env:"LISTEN_ADDRESS" envDefault:":8000"`
}

var _ Config = (*EnvConfig)(nil)

// Validate ensures the process does not come up with an unusable secret set
func (c *EnvConfig) Validate() error {
	if len(c.SigningKeys) == 0 || c.SigningKeys[0] == "" {
		return errors.New("at least one signing key is required", errors.CategoryValidation)
	}
	if c.SigningMethod != "HS256" {
		return errors.New("unsupported signing method: "+c.SigningMethod, errors.CategoryValidation)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive", errors.CategoryValidation)
	}
	return nil
}

func (c *EnvConfig) GetSigningKeys() []string { return c.SigningKeys }

func (c *EnvConfig) GetSigningMethod() string { return c.SigningMethod }

func (c *EnvConfig) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

func (c *EnvConfig) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }

func (c *EnvConfig) GetVerificationSalt() string { return c.VerificationSalt }

func (c *EnvConfig) GetVerificationMaxAge() time.Duration { return c.VerificationMaxAge }

func (c *EnvConfig) GetContextKey() string { return c.ContextKey }

func (c *EnvConfig) GetAuthScheme() string { return c.AuthScheme }

func (c *EnvConfig) GetIssuer() string { return c.Issuer }

func (c *EnvConfig) GetAudience() []string { return c.Audience }
