package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload carried by both access and refresh tokens.
// It identifies the user and nothing else: role, verification state and the
// rest of the profile live in the session cache, so a token alone never
// proves a login.
type AccessClaims struct {
	jwt.RegisteredClaims
	UID string `json:"uid,omitempty"`
}

// UserID returns the user ID
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *AccessClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ActivationClaims is the payload of an activation token: the pending
// registration plus the 4 digit code the user must echo back. The token is
// short lived and signed with its own secret.
type ActivationClaims struct {
	jwt.RegisteredClaims
	User PendingRegistration `json:"user"`
	Code string              `json:"activation_code"`
}
