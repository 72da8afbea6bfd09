package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenFromHeader extracts the raw bearer token from the Authorization
// header. Fails with ErrUnableToFindSession when the header is missing
// or does not carry the expected scheme.
func TokenFromHeader(c *fiber.Ctx, scheme string) (string, error) {
	if scheme == "" {
		scheme = "Bearer"
	}

	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", ErrUnableToFindSession
	}

	prefix := scheme + " "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", ErrUnableToFindSession
	}

	return strings.TrimSpace(header[len(prefix):]), nil
}

// Protected guards a route group: it extracts the bearer token, checks
// the revocation denylist alongside signature and expiry validation,
// resolves the identity, and stows it for downstream handlers. Token
// failures answer 401 with a WWW-Authenticate challenge; store outages
// answer 500.
func Protected(auther Authenticator, cfg Config, logger Logger) fiber.Handler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx) error {
		raw, err := TokenFromHeader(c, cfg.GetAuthScheme())
		if err != nil {
			return unauthorized(c, err)
		}

		identity, err := auther.IdentityFromToken(c.Context(), raw)
		if err != nil {
			if IsInternalError(err) {
				logger.Error("Protected route token check failed", "error", err)
				return respondFail(c, fiber.StatusInternalServerError, "Something went wrong", nil)
			}

			logger.Debug("Protected route rejected token", "error", err)
			return unauthorized(c, err)
		}

		c.Locals(cfg.GetContextKey(), identity)
		c.Locals(rawTokenKey, raw)
		c.SetUserContext(WithIdentityContext(c.UserContext(), identity))

		return c.Next()
	}
}

// RequireRoles applies the access control gate to the identity stowed
// by Protected. ADMIN always passes.
func RequireRoles(cfg Config, roles ...UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromFiber(c, cfg.GetContextKey())
		if !ok {
			return unauthorized(c, ErrUnableToFindSession)
		}

		if err := Authorize(identity.Role(), roles...); err != nil {
			return respondFail(c, fiber.StatusForbidden, "The user doesn't have enough privileges", nil)
		}

		return c.Next()
	}
}

const rawTokenKey = "auth:raw_token"

// IdentityFromFiber reads the identity stowed by the Protected middleware
func IdentityFromFiber(c *fiber.Ctx, key string) (Identity, bool) {
	if key == "" {
		key = "user"
	}
	identity, ok := c.Locals(key).(Identity)
	return identity, ok
}

// RawTokenFromFiber returns the bearer token the request authenticated with
func RawTokenFromFiber(c *fiber.Ctx) (string, bool) {
	raw, ok := c.Locals(rawTokenKey).(string)
	return raw, ok
}

func unauthorized(c *fiber.Ctx, err error) error {
	c.Set(fiber.HeaderWWWAuthenticate, "Bearer")

	message := "Could not validate credentials"
	if IsTokenExpiredError(err) {
		message = "Token has expired"
	}

	return respondFail(c, fiber.StatusUnauthorized, message, nil)
}
