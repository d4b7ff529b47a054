package domain

import (
	"context"
	"errors"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func AllRoles() []Role { return []Role{RoleUser, RoleModerator, RoleAdmin} }

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Elevated 受删除保护的角色
func (r Role) Elevated() bool { return r == RoleAdmin }

// User 持久化用户记录；PasswordHash 与重置摘要永不出现在 JSON 中
type User struct {
	ID                  string     `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	PasswordHash        string     `json:"-"`
	Role                Role       `json:"role"`
	PasswordChangedAt   *time.Time `json:"passwordChangedAt,omitempty"`
	ResetTokenDigest    *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// PublicUser 对外投影（白名单字段）
type PublicUser struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Role              Role       `json:"role"`
	PasswordChangedAt *time.Time `json:"passwordChangedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		Role:              u.Role,
		PasswordChangedAt: u.PasswordChangedAt,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// PasswordChangedAfter 判断签发于 issuedAt 的令牌是否已因改密失效；按完整精度比较。
// 改密后立即签发的新令牌与 PasswordChangedAt 同刻或更晚，仍然有效。
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.After(issuedAt)
}

func (u *User) HasPendingReset() bool {
	return u.ResetTokenDigest != nil && u.ResetTokenExpiresAt != nil
}

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

type ListFilter struct {
	Offset      int
	Limit       int
	Query       string // email/name 模糊匹配
	WithDeleted bool
}

// UserRepository 存储契约：每个变更都是按 id 的单条原子更新
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByIDWithPassword(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailWithPassword(ctx context.Context, email string) (*User, error)
	// FindByResetDigest 摘要匹配且 resetTokenExpiresAt > now
	FindByResetDigest(ctx context.Context, digest string, now time.Time) (*User, error)
	// SetResetToken 同时写入摘要与过期时间，覆盖之前未完成的重置
	SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error
	// UpdatePassword 写入新哈希与 passwordChangedAt，并清空重置字段
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error
	List(ctx context.Context, f ListFilter) ([]User, int64, error)
	Delete(ctx context.Context, id string) error
}
