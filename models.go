package auth

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleUser is a regular learner account
	RoleUser UserRole = "user"
	// RoleAdmin can manage platform resources
	RoleAdmin UserRole = "admin"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether the address has the shape we accept at
// registration time. Deliverability is out of scope.
func ValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// User is the user model
type User struct {
	bun.BaseModel     `bun:"table:users,alias:usr"`
	ID                uuid.UUID   `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role              UserRole    `bun:"user_role,notnull" json:"role,omitempty"`
	Name              string      `bun:"name,notnull" json:"name,omitempty"`
	Email             string      `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string      `bun:"password_hash" json:"-"`
	AvatarPublicID    string      `bun:"avatar_public_id" json:"avatar_public_id,omitempty"`
	AvatarURL         string      `bun:"avatar_url" json:"avatar_url,omitempty"`
	IsVerified        bool        `bun:"is_verified" json:"is_verified,omitempty"`
	Courses           []CourseRef `bun:"courses" json:"courses,omitempty"`
	PasswordChangedAt *time.Time  `bun:"password_changed_at,nullzero" json:"password_changed_at,omitempty"`
	CreatedAt         *time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time  `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// CourseRef links a user to a course they are enrolled in. Course content
// lives in another service, we only keep the reference.
type CourseRef struct {
	CourseID string `json:"course_id"`
}

// HasPassword reports whether the account can authenticate with a password.
// Social accounts are created without one.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// ChangedPasswordAfter reports whether the password changed strictly after
// the given token issue time. Used to invalidate pre-change access tokens.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.After(issuedAt)
}

// SessionSnapshot is the JSON record kept in the session cache, keyed by
// user id. It mirrors the user minus anything secret: the password hash
// never enters the cache.
type SessionSnapshot struct {
	ID                string      `json:"id"`
	Name              string      `json:"name,omitempty"`
	Email             string      `json:"email"`
	Role              UserRole    `json:"role"`
	AvatarPublicID    string      `json:"avatar_public_id,omitempty"`
	AvatarURL         string      `json:"avatar_url,omitempty"`
	IsVerified        bool        `json:"is_verified,omitempty"`
	Courses           []CourseRef `json:"courses,omitempty"`
	PasswordChangedAt *time.Time  `json:"password_changed_at,omitempty"`
}

// NewSessionSnapshot projects a user into its cacheable session form.
func NewSessionSnapshot(user *User) *SessionSnapshot {
	if user == nil {
		return nil
	}
	return &SessionSnapshot{
		ID:                user.ID.String(),
		Name:              user.Name,
		Email:             user.Email,
		Role:              user.Role,
		AvatarPublicID:    user.AvatarPublicID,
		AvatarURL:         user.AvatarURL,
		IsVerified:        user.IsVerified,
		Courses:           user.Courses,
		PasswordChangedAt: user.PasswordChangedAt,
	}
}

// PendingRegistration is the registration payload held inside an
// activation token while the account waits for its code. The password
// travels in clear inside the signed token and is only hashed once the
// user actually activates.
type PendingRegistration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
