package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-lms-auth"
)

func TestRoles(t *testing.T) {
	t.Run("known roles are valid", func(t *testing.T) {
		assert.True(t, auth.RoleUser.IsValid())
		assert.True(t, auth.RoleAdmin.IsValid())
		assert.False(t, auth.UserRole("superuser").IsValid())
		assert.False(t, auth.UserRole("").IsValid())
	})

	t.Run("admin outranks user", func(t *testing.T) {
		assert.True(t, auth.RoleAdmin.IsAtLeast(auth.RoleUser))
		assert.True(t, auth.RoleAdmin.IsAtLeast(auth.RoleAdmin))
		assert.True(t, auth.RoleUser.IsAtLeast(auth.RoleUser))
		assert.False(t, auth.RoleUser.IsAtLeast(auth.RoleAdmin))
	})

	t.Run("parse rejects unknown roles", func(t *testing.T) {
		role, ok := auth.ParseRole("admin")
		assert.True(t, ok)
		assert.Equal(t, auth.RoleAdmin, role)

		_, ok = auth.ParseRole("root")
		assert.False(t, ok)
	})
}
