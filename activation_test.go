package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-lms-auth"
)

func TestActivationService(t *testing.T) {
	ctx := context.Background()

	pending := auth.PendingRegistration{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Password: "correct-horse",
	}

	newService := func(t *testing.T) (*auth.ActivationService, auth.RepositoryManager, *captureMailer) {
		t.Helper()
		repo := setupRepo(t)
		mailer := &captureMailer{}
		svc := auth.NewActivationService(repo, setupTokens(t, nil), mailer)
		return svc, repo, mailer
	}

	t.Run("create activation mails a 4 digit code", func(t *testing.T) {
		svc, _, mailer := newService(t)

		activation, err := svc.CreateActivation(ctx, pending)
		require.NoError(t, err)
		assert.NotEmpty(t, activation.Token)
		assert.Len(t, activation.Code, 4)

		msg, ok := mailer.last()
		require.True(t, ok)
		assert.Equal(t, pending.Email, msg.To)
		assert.Contains(t, msg.HTML, activation.Code)
	})

	t.Run("activate with matching code creates a verified user", func(t *testing.T) {
		svc, repo, _ := newService(t)

		activation, err := svc.CreateActivation(ctx, pending)
		require.NoError(t, err)

		user, err := svc.Activate(ctx, activation.Token, activation.Code)
		require.NoError(t, err)
		assert.Equal(t, pending.Email, user.Email)
		assert.Equal(t, pending.Name, user.Name)
		assert.True(t, user.IsVerified)
		assert.Equal(t, auth.RoleUser, user.Role)

		stored, err := repo.Users().GetWithPassword(ctx, pending.Email)
		require.NoError(t, err)
		assert.NoError(t, auth.ComparePasswordAndHash(pending.Password, stored.PasswordHash))
	})

	t.Run("wrong code is rejected", func(t *testing.T) {
		svc, repo, _ := newService(t)

		activation, err := svc.CreateActivation(ctx, pending)
		require.NoError(t, err)

		wrong := "0000"
		if activation.Code == wrong {
			wrong = "0001"
		}

		_, err = svc.Activate(ctx, activation.Token, wrong)
		require.Error(t, err)
		assert.Equal(t, 401, auth.ErrorStatusCode(err))

		_, err = repo.Users().GetByIdentifier(ctx, pending.Email)
		assert.Error(t, err)
	})

	t.Run("expired activation token is rejected", func(t *testing.T) {
		repo := setupRepo(t)
		cfg := newTestConfig()
		cfg.activationTTL = time.Millisecond

		svc := auth.NewActivationService(repo, setupTokens(t, cfg), &captureMailer{})

		activation, err := svc.CreateActivation(ctx, pending)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)

		_, err = svc.Activate(ctx, activation.Token, activation.Code)
		require.Error(t, err)
		assert.True(t, auth.IsTokenExpiredError(err))
	})

	t.Run("activating a taken email fails", func(t *testing.T) {
		svc, repo, _ := newService(t)
		createTestUser(t, repo, pending.Email, "other-password")

		activation, err := svc.CreateActivation(ctx, pending)
		require.NoError(t, err)

		_, err = svc.Activate(ctx, activation.Token, activation.Code)
		require.Error(t, err)
		assert.Equal(t, 400, auth.ErrorStatusCode(err))
	})

	t.Run("retried registrations converge on the same user id", func(t *testing.T) {
		svcA, _, _ := newService(t)
		svcB, _, _ := newService(t)

		actA, err := svcA.CreateActivation(ctx, pending)
		require.NoError(t, err)
		actB, err := svcB.CreateActivation(ctx, pending)
		require.NoError(t, err)

		userA, err := svcA.Activate(ctx, actA.Token, actA.Code)
		require.NoError(t, err)
		userB, err := svcB.Activate(ctx, actB.Token, actB.Code)
		require.NoError(t, err)

		assert.Equal(t, userA.ID, userB.ID)
	})

	t.Run("code source override keeps codes deterministic", func(t *testing.T) {
		repo := setupRepo(t)
		mailer := &captureMailer{}
		svc := auth.NewActivationService(repo, setupTokens(t, nil), mailer).
			WithCodeSource(func() (string, error) { return "4242", nil })

		activation, err := svc.CreateActivation(ctx, pending)
		require.NoError(t, err)
		assert.Equal(t, "4242", activation.Code)
	})
}
