package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-lms-auth"
)

func setupAuther(t *testing.T) (*auth.Auther, auth.RepositoryManager, *auth.RedisSessionCache) {
	t.Helper()

	repo := setupRepo(t)
	sessions, _ := setupSessions(t)
	auther := auth.NewAuthenticator(repo, setupTokens(t, nil), sessions)

	return auther, repo, sessions
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials issue tokens and a session", func(t *testing.T) {
		auther, repo, sessions := setupAuther(t)
		user := createTestUser(t, repo, "ada@example.com", "correct-horse")

		result, err := auther.Login(ctx, "ada@example.com", "correct-horse")
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.NotEqual(t, result.AccessToken, result.RefreshToken)
		assert.Equal(t, user.ID.String(), result.User.ID)

		snapshot, err := sessions.Get(ctx, user.ID.String())
		require.NoError(t, err)
		require.NotNil(t, snapshot)
		assert.Equal(t, user.Email, snapshot.Email)
	})

	t.Run("wrong password and unknown email fail the same way", func(t *testing.T) {
		auther, repo, _ := setupAuther(t)
		createTestUser(t, repo, "ada@example.com", "correct-horse")

		_, errWrongPassword := auther.Login(ctx, "ada@example.com", "bad-guess")
		require.Error(t, errWrongPassword)

		_, errUnknownEmail := auther.Login(ctx, "nobody@example.com", "bad-guess")
		require.Error(t, errUnknownEmail)

		assert.Equal(t, errWrongPassword.Error(), errUnknownEmail.Error())
		assert.Equal(t, 401, auth.ErrorStatusCode(errWrongPassword))
		assert.Equal(t, 401, auth.ErrorStatusCode(errUnknownEmail))
	})

	t.Run("missing fields are a validation error", func(t *testing.T) {
		auther, _, _ := setupAuther(t)

		_, err := auther.Login(ctx, "", "")
		require.Error(t, err)
		assert.Equal(t, 400, auth.ErrorStatusCode(err))
	})

	t.Run("password-less social account cannot password login", func(t *testing.T) {
		auther, repo, _ := setupAuther(t)

		_, err := repo.Users().Create(ctx, &auth.User{
			Name:  "Grace",
			Email: "grace@example.com",
		})
		require.NoError(t, err)

		_, err = auther.Login(ctx, "grace@example.com", "anything")
		require.Error(t, err)
		assert.Equal(t, 401, auth.ErrorStatusCode(err))
	})
}

func TestSocialAuth(t *testing.T) {
	ctx := context.Background()

	profile := auth.SocialProfile{
		Name:      "Grace Hopper",
		Email:     "grace@example.com",
		AvatarURL: "https://cdn.example.com/grace.png",
	}

	t.Run("creates a password-less account for new emails", func(t *testing.T) {
		auther, repo, _ := setupAuther(t)

		result, err := auther.SocialAuth(ctx, profile)
		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)

		stored, err := repo.Users().GetWithPassword(ctx, profile.Email)
		require.NoError(t, err)
		assert.False(t, stored.HasPassword())
		assert.Equal(t, profile.AvatarURL, stored.AvatarURL)
	})

	t.Run("existing account wins, no duplicate is created", func(t *testing.T) {
		auther, repo, _ := setupAuther(t)
		existing := createTestUser(t, repo, profile.Email, "correct-horse")

		result, err := auther.SocialAuth(ctx, profile)
		require.NoError(t, err)
		assert.Equal(t, existing.ID.String(), result.User.ID)

		// the original name stays, the profile does not overwrite it
		stored, err := repo.Users().GetByIdentifier(ctx, profile.Email)
		require.NoError(t, err)
		assert.Equal(t, existing.Name, stored.Name)
	})

	t.Run("requires an email", func(t *testing.T) {
		auther, _, _ := setupAuther(t)

		_, err := auther.SocialAuth(ctx, auth.SocialProfile{Name: "No Email"})
		require.Error(t, err)
		assert.Equal(t, 400, auth.ErrorStatusCode(err))
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("mints a new pair while the session lives", func(t *testing.T) {
		auther, repo, _ := setupAuther(t)
		createTestUser(t, repo, "ada@example.com", "correct-horse")

		login, err := auther.Login(ctx, "ada@example.com", "correct-horse")
		require.NoError(t, err)

		refreshed, err := auther.Refresh(ctx, login.RefreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, refreshed.AccessToken)
		assert.NotEmpty(t, refreshed.RefreshToken)
		assert.Equal(t, login.User.ID, refreshed.User.ID)
	})

	t.Run("rejects access tokens", func(t *testing.T) {
		auther, repo, _ := setupAuther(t)
		createTestUser(t, repo, "ada@example.com", "correct-horse")

		login, err := auther.Login(ctx, "ada@example.com", "correct-horse")
		require.NoError(t, err)

		_, err = auther.Refresh(ctx, login.AccessToken)
		assert.Error(t, err)
	})

	t.Run("a valid token after logout is dead", func(t *testing.T) {
		auther, repo, _ := setupAuther(t)
		user := createTestUser(t, repo, "ada@example.com", "correct-horse")

		login, err := auther.Login(ctx, "ada@example.com", "correct-horse")
		require.NoError(t, err)

		require.NoError(t, auther.Logout(ctx, user.ID.String()))

		_, err = auther.Refresh(ctx, login.RefreshToken)
		require.Error(t, err)
		assert.Equal(t, 401, auth.ErrorStatusCode(err))
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("deletes the session and is idempotent", func(t *testing.T) {
		auther, repo, sessions := setupAuther(t)
		user := createTestUser(t, repo, "ada@example.com", "correct-horse")

		_, err := auther.Login(ctx, "ada@example.com", "correct-horse")
		require.NoError(t, err)

		require.NoError(t, auther.Logout(ctx, user.ID.String()))

		snapshot, err := sessions.Get(ctx, user.ID.String())
		require.NoError(t, err)
		assert.Nil(t, snapshot)

		require.NoError(t, auther.Logout(ctx, user.ID.String()))
	})
}
