package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenKind selects which credential a TokenService operation targets.
type TokenKind string

const (
	// TokenAccess is the short lived credential carried on every request.
	TokenAccess TokenKind = "access"
	// TokenRefresh is the long lived credential used only to mint new pairs.
	TokenRefresh TokenKind = "refresh"
)

// TokenService signs and validates the paired access/refresh credentials.
// Each kind has its own secret and TTL so a leaked refresh secret never
// validates access tokens and vice versa.
type TokenService interface {
	IssueToken(kind TokenKind, userID string) (string, error)
	Validate(tokenString string, kind TokenKind) (*AccessClaims, error)
	SignActivationClaims(claims *ActivationClaims) (string, error)
	ValidateActivation(tokenString string) (*ActivationClaims, error)
	CookieOptions(kind TokenKind) CookieOptions
}

// SessionCache is the server side session record store. Presence of a
// snapshot is the sole proof a user is logged in: a structurally valid
// token whose session is gone must be rejected.
type SessionCache interface {
	Put(ctx context.Context, userID string, snapshot *SessionSnapshot) error
	Get(ctx context.Context, userID string) (*SessionSnapshot, error)
	Delete(ctx context.Context, userID string) error
}

// Mailer delivers transactional mail. The module only ever sends the
// activation message; delivery internals stay behind this boundary.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// MailMessage is a rendered outbound email.
type MailMessage struct {
	To      string
	Subject string
	HTML    string
}

// MediaStorage stores user avatars. Implementations own naming and URLs.
type MediaStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	Remove(ctx context.Context, key string) error
}

// Config holds auth options
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetActivationSigningKey() string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetActivationTokenTTL() time.Duration
	GetSessionTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetProduction() bool
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
