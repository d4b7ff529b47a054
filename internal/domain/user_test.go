package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole(t *testing.T) {
	for _, r := range AllRoles() {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("root").Valid())
	assert.True(t, RoleAdmin.Elevated())
	assert.False(t, RoleModerator.Elevated())
	assert.False(t, RoleUser.Elevated())
}

func TestUser_JSONNeverLeaksSecrets(t *testing.T) {
	digest := "abc123digest"
	exp := time.Now().Add(10 * time.Minute)
	u := &User{
		ID:                  "u1",
		Email:               "john@example.com",
		Name:                "John Doe",
		PasswordHash:        "$2a$12$secret",
		Role:                RoleUser,
		ResetTokenDigest:    &digest,
		ResetTokenExpiresAt: &exp,
	}

	for name, v := range map[string]any{"record": u, "public": u.Public()} {
		t.Run(name, func(t *testing.T) {
			b, err := json.Marshal(v)
			require.NoError(t, err)
			s := string(b)
			assert.NotContains(t, s, "$2a$12$secret")
			assert.NotContains(t, s, digest)
			assert.Contains(t, s, "john@example.com")
		})
	}
}

func TestUser_PasswordChangedAfter(t *testing.T) {
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("never changed", func(t *testing.T) {
		assert.False(t, (&User{}).PasswordChangedAfter(issued))
	})

	t.Run("changed after issuance", func(t *testing.T) {
		changed := issued.Add(2 * time.Second)
		assert.True(t, (&User{PasswordChangedAt: &changed}).PasswordChangedAfter(issued))
	})

	t.Run("changed before issuance", func(t *testing.T) {
		changed := issued.Add(-time.Minute)
		assert.False(t, (&User{PasswordChangedAt: &changed}).PasswordChangedAfter(issued))
	})

	t.Run("changed later in the same second", func(t *testing.T) {
		changed := issued.Add(500 * time.Millisecond)
		assert.True(t, (&User{PasswordChangedAt: &changed}).PasswordChangedAfter(issued))
	})

	t.Run("changed one microsecond later", func(t *testing.T) {
		changed := issued.Add(time.Microsecond)
		assert.True(t, (&User{PasswordChangedAt: &changed}).PasswordChangedAfter(issued))
	})

	t.Run("token issued at the change instant", func(t *testing.T) {
		changed := issued
		assert.False(t, (&User{PasswordChangedAt: &changed}).PasswordChangedAfter(issued))
	})
}

func TestUser_HasPendingReset(t *testing.T) {
	digest := "d"
	exp := time.Now()
	assert.False(t, (&User{}).HasPendingReset())
	assert.False(t, (&User{ResetTokenDigest: &digest}).HasPendingReset())
	assert.True(t, (&User{ResetTokenDigest: &digest, ResetTokenExpiresAt: &exp}).HasPendingReset())
}
