package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-gin-auth-service/internal/domain"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		op   Operation
		role domain.Role
		want bool
	}{
		{OpListUsers, domain.RoleAdmin, true},
		{OpListUsers, domain.RoleModerator, true},
		{OpListUsers, domain.RoleUser, false},
		{OpDeleteUser, domain.RoleAdmin, true},
		{OpDeleteUser, domain.RoleModerator, true},
		{OpDeleteUser, domain.RoleUser, false},
		{OpChangePassword, domain.RoleUser, true},
		{OpMe, domain.RoleModerator, true},
		{OpCancelReset, domain.RoleAdmin, true},
		{Operation("unknown"), domain.RoleAdmin, false},
		{OpMe, domain.Role("ghost"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.op)+"/"+string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, p.Allows(tt.op, tt.role))
		})
	}
}

func TestAuthorize(t *testing.T) {
	assert.True(t, Authorize(domain.RoleUser, []domain.Role{domain.RoleUser}))
	assert.False(t, Authorize(domain.RoleUser, nil))
}
