package auth_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	auth "github.com/norahq/go-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationCodec_RoundTrip(t *testing.T) {
	codec := auth.NewVerificationCodec(testConfig())

	t.Run("verifies a freshly created token", func(t *testing.T) {
		token := codec.Create("alice@example.com")
		require.NotEmpty(t, token)

		email, err := codec.Verify(token, 0)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", email)
	})

	t.Run("normalizes the email on creation", func(t *testing.T) {
		token := codec.Create("  Alice@Example.COM ")

		email, err := codec.Verify(token, 0)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", email)
	})

	t.Run("tokens are opaque to the JWT validator", func(t *testing.T) {
		service := auth.NewTokenService(testConfig(), nil)
		token := codec.Create("alice@example.com")

		_, err := service.Validate(token, auth.TokenKindAccess)
		assert.Error(t, err)
	})
}

func TestVerificationCodec_Verify(t *testing.T) {
	cfg := testConfig()
	codec := auth.NewVerificationCodec(cfg)

	t.Run("rejects tampered signature", func(t *testing.T) {
		token := codec.Create("alice@example.com")
		tampered := token[:len(token)-2] + "zz"

		email, err := codec.Verify(tampered, 0)
		assert.Empty(t, email)
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
	})

	t.Run("rejects tampered email", func(t *testing.T) {
		token := codec.Create("alice@example.com")

		parts := strings.Split(token, ".")
		parts[0] = base64.RawURLEncoding.EncodeToString([]byte("mallory@example.com"))
		forged := strings.Join(parts, ".")

		email, err := codec.Verify(forged, 0)
		assert.Empty(t, email)
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
	})

	t.Run("rejects token minted with a different salt", func(t *testing.T) {
		otherCfg := testConfig()
		otherCfg.VerificationSalt = "password-reset"
		other := auth.NewVerificationCodec(otherCfg)

		token := other.Create("alice@example.com")

		email, err := codec.Verify(token, 0)
		assert.Empty(t, email)
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
	})

	t.Run("rejects token minted with a different secret", func(t *testing.T) {
		otherCfg := testConfig()
		otherCfg.SigningKeys = []string{"rotated-away-secret"}
		other := auth.NewVerificationCodec(otherCfg)

		token := other.Create("alice@example.com")

		_, err := codec.Verify(token, 0)
		assert.ErrorIs(t, err, auth.ErrTokenMalformed)
	})

	t.Run("rejects malformed shapes", func(t *testing.T) {
		for _, token := range []string{
			"",
			"only-one-part",
			"two.parts",
			"a.b.c.d",
			"!!!.###.$$$",
		} {
			_, err := codec.Verify(token, 0)
			assert.ErrorIs(t, err, auth.ErrTokenMalformed, "token: %q", token)
		}
	})

	t.Run("rejects tokens older than max age", func(t *testing.T) {
		issued := time.Now().Add(-2 * time.Hour)
		token := mintVerificationToken(t, cfg, "alice@example.com", issued)

		// sanity: the crafted token carries a valid signature
		_, err := codec.Verify(token, 24*time.Hour)
		require.NoError(t, err)

		// default max age is one hour
		email, err := codec.Verify(token, 0)
		assert.Empty(t, email)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)

		_, err = codec.Verify(token, 30*time.Minute)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})
}

// mintVerificationToken reproduces the codec's signing scheme so tests
// can craft tokens with arbitrary timestamps.
func mintVerificationToken(t *testing.T, cfg *auth.EnvConfig, email string, issued time.Time) string {
	t.Helper()

	mac := hmac.New(sha256.New, []byte(cfg.SigningKeys[0]))
	mac.Write([]byte(cfg.VerificationSalt))
	key := mac.Sum(nil)

	b64 := base64.RawURLEncoding

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(issued.Unix()))

	payload := b64.EncodeToString([]byte(email)) + "." + b64.EncodeToString(ts[:])

	sig := hmac.New(sha256.New, key)
	sig.Write([]byte(payload))

	return payload + "." + b64.EncodeToString(sig.Sum(nil))
}
