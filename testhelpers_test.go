package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	auth "github.com/goliatone/go-lms-auth"
)

const sqliteCreateUsers = `CREATE TABLE users (
	id TEXT NOT NULL PRIMARY KEY,
	user_role TEXT NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT,
	avatar_public_id TEXT,
	avatar_url TEXT,
	is_verified BOOLEAN NOT NULL DEFAULT FALSE,
	courses TEXT,
	password_changed_at TIMESTAMP NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP,
	deleted_at TIMESTAMP NULL
);`

// testConfig implements auth.Config with deterministic values.
type testConfig struct {
	accessKey     string
	refreshKey    string
	activationKey string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	activationTTL time.Duration
	sessionTTL    time.Duration
	issuer        string
	audience      []string
	production    bool
}

func newTestConfig() *testConfig {
	return &testConfig{
		accessKey:     "access-secret",
		refreshKey:    "refresh-secret",
		activationKey: "activation-secret",
		accessTTL:     5 * time.Minute,
		refreshTTL:    72 * time.Hour,
		activationTTL: 5 * time.Minute,
		sessionTTL:    72 * time.Hour,
		issuer:        "test-issuer",
		audience:      []string{"test-app"},
	}
}

func (c *testConfig) GetAccessSigningKey() string          { return c.accessKey }
func (c *testConfig) GetRefreshSigningKey() string         { return c.refreshKey }
func (c *testConfig) GetActivationSigningKey() string      { return c.activationKey }
func (c *testConfig) GetAccessTokenTTL() time.Duration     { return c.accessTTL }
func (c *testConfig) GetRefreshTokenTTL() time.Duration    { return c.refreshTTL }
func (c *testConfig) GetActivationTokenTTL() time.Duration { return c.activationTTL }
func (c *testConfig) GetSessionTTL() time.Duration         { return c.sessionTTL }
func (c *testConfig) GetIssuer() string                    { return c.issuer }
func (c *testConfig) GetAudience() []string                { return c.audience }
func (c *testConfig) GetProduction() bool                  { return c.production }

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=private")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(sqliteCreateUsers)
	require.NoError(t, err)

	return db
}

func setupRepo(t *testing.T) auth.RepositoryManager {
	t.Helper()
	return auth.NewRepositoryManager(setupDB(t))
}

func setupSessions(t *testing.T) (*auth.RedisSessionCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return auth.NewRedisSessionCache(client, time.Hour), mr
}

func setupTokens(t *testing.T, cfg auth.Config) auth.TokenService {
	t.Helper()

	if cfg == nil {
		cfg = newTestConfig()
	}

	tokens, err := auth.NewTokenService(cfg)
	require.NoError(t, err)

	return tokens
}

// captureMailer records sent messages instead of delivering them.
type captureMailer struct {
	mu   sync.Mutex
	sent []auth.MailMessage
}

func (m *captureMailer) Send(_ context.Context, msg auth.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last() (auth.MailMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return auth.MailMessage{}, false
	}
	return m.sent[len(m.sent)-1], true
}

func createTestUser(t *testing.T, repo auth.RepositoryManager, email, password string) *auth.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user, err := repo.Users().Create(context.Background(), &auth.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         auth.RoleUser,
		IsVerified:   true,
	})
	require.NoError(t, err)

	return user
}
