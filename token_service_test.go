package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-lms-auth"
)

func TestNewTokenService(t *testing.T) {
	t.Run("requires signing keys", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.accessKey = ""

		_, err := auth.NewTokenService(cfg)
		assert.Error(t, err)
	})

	t.Run("creates service with valid config", func(t *testing.T) {
		tokens, err := auth.NewTokenService(newTestConfig())
		require.NoError(t, err)
		assert.NotNil(t, tokens)
	})
}

func TestIssueAndValidate(t *testing.T) {
	tokens := setupTokens(t, nil)
	userID := "b1946ac9-2d9b-4f4f-9b3c-000000000001"

	t.Run("round trip preserves the user id and nothing else", func(t *testing.T) {
		for _, kind := range []auth.TokenKind{auth.TokenAccess, auth.TokenRefresh} {
			raw, err := tokens.IssueToken(kind, userID)
			require.NoError(t, err)
			require.NotEmpty(t, raw)

			claims, err := tokens.Validate(raw, kind)
			require.NoError(t, err)
			assert.Equal(t, userID, claims.UserID())
			assert.Equal(t, userID, claims.Subject)
		}
	})

	t.Run("access secret does not validate refresh tokens", func(t *testing.T) {
		raw, err := tokens.IssueToken(auth.TokenRefresh, userID)
		require.NoError(t, err)

		_, err = tokens.Validate(raw, auth.TokenAccess)
		assert.Error(t, err)
	})

	t.Run("refresh secret does not validate access tokens", func(t *testing.T) {
		raw, err := tokens.IssueToken(auth.TokenAccess, userID)
		require.NoError(t, err)

		_, err = tokens.Validate(raw, auth.TokenRefresh)
		assert.Error(t, err)
	})

	t.Run("rejects empty user id", func(t *testing.T) {
		_, err := tokens.IssueToken(auth.TokenAccess, "")
		assert.Error(t, err)
	})

	t.Run("rejects unknown token kind", func(t *testing.T) {
		_, err := tokens.IssueToken(auth.TokenKind("session"), userID)
		assert.Error(t, err)
	})

	t.Run("rejects tampered tokens", func(t *testing.T) {
		raw, err := tokens.IssueToken(auth.TokenAccess, userID)
		require.NoError(t, err)

		_, err = tokens.Validate(raw+"x", auth.TokenAccess)
		assert.Error(t, err)
		assert.True(t, auth.IsMalformedError(err))
	})

	t.Run("expired token maps to the expired error", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.accessTTL = time.Millisecond

		quick, err := auth.NewTokenService(cfg)
		require.NoError(t, err)

		raw, err := quick.IssueToken(auth.TokenAccess, userID)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		_, err = quick.Validate(raw, auth.TokenAccess)
		require.Error(t, err)
		assert.True(t, auth.IsTokenExpiredError(err))
	})
}

func TestActivationTokens(t *testing.T) {
	tokens := setupTokens(t, nil)

	pending := auth.PendingRegistration{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "correct-horse",
	}

	t.Run("round trip preserves the pending registration and code", func(t *testing.T) {
		raw, err := tokens.SignActivationClaims(&auth.ActivationClaims{
			User: pending,
			Code: "1234",
		})
		require.NoError(t, err)

		claims, err := tokens.ValidateActivation(raw)
		require.NoError(t, err)
		assert.Equal(t, pending, claims.User)
		assert.Equal(t, "1234", claims.Code)
	})

	t.Run("access secret does not validate activation tokens", func(t *testing.T) {
		raw, err := tokens.SignActivationClaims(&auth.ActivationClaims{
			User: pending,
			Code: "1234",
		})
		require.NoError(t, err)

		_, err = tokens.Validate(raw, auth.TokenAccess)
		assert.Error(t, err)
	})

	t.Run("rejects nil claims", func(t *testing.T) {
		_, err := tokens.SignActivationClaims(nil)
		assert.Error(t, err)
	})
}

func TestCookieOptions(t *testing.T) {
	t.Run("access cookie tracks the access TTL", func(t *testing.T) {
		cfg := newTestConfig()
		tokens := setupTokens(t, cfg)

		opts := tokens.CookieOptions(auth.TokenAccess)
		assert.Equal(t, auth.AccessTokenCookie, opts.Name)
		assert.Equal(t, int(cfg.accessTTL/time.Second), opts.MaxAge)
		assert.True(t, opts.HTTPOnly)
		assert.Equal(t, "Lax", opts.SameSite)
		assert.False(t, opts.Secure)
	})

	t.Run("refresh cookie tracks the refresh TTL", func(t *testing.T) {
		cfg := newTestConfig()
		tokens := setupTokens(t, cfg)

		opts := tokens.CookieOptions(auth.TokenRefresh)
		assert.Equal(t, auth.RefreshTokenCookie, opts.Name)
		assert.Equal(t, int(cfg.refreshTTL/time.Second), opts.MaxAge)
	})

	t.Run("secure flag follows the production toggle", func(t *testing.T) {
		cfg := newTestConfig()
		cfg.production = true
		tokens := setupTokens(t, cfg)

		assert.True(t, tokens.CookieOptions(auth.TokenAccess).Secure)
		assert.True(t, tokens.CookieOptions(auth.TokenRefresh).Secure)
	})
}
