package auth

import (
	"slices"

	"go-gin-auth-service/internal/domain"
)

// Operation 受保护操作的名字；路由通过它查询策略，而不是各自硬编码角色
type Operation string

const (
	OpMe             Operation = "me"
	OpChangePassword Operation = "changePassword"
	OpCancelReset    Operation = "cancelReset"
	OpListUsers      Operation = "listUsers"
	OpDeleteUser     Operation = "deleteUser"
)

// Policy 操作 → 允许的角色集合；未登记的操作一律拒绝
type Policy map[Operation][]domain.Role

func DefaultPolicy() Policy {
	staff := []domain.Role{domain.RoleAdmin, domain.RoleModerator}
	return Policy{
		OpMe:             domain.AllRoles(),
		OpChangePassword: domain.AllRoles(),
		OpCancelReset:    domain.AllRoles(),
		OpListUsers:      staff,
		OpDeleteUser:     staff,
	}
}

func (p Policy) Allows(op Operation, role domain.Role) bool {
	allowed, ok := p[op]
	if !ok {
		return false
	}
	return Authorize(role, allowed)
}

// Authorize 纯集合判断
func Authorize(role domain.Role, allowed []domain.Role) bool {
	return slices.Contains(allowed, role)
}
