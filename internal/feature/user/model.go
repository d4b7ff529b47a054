package user

import (
	"time"

	"gorm.io/gorm"

	"go-gin-auth-service/internal/domain"
)

type UserModel struct {
	ID           string `gorm:"primaryKey;type:varchar(32)"`
	Email        string `gorm:"uniqueIndex;size:255;not null"`
	Name         string `gorm:"size:64;not null"`
	PasswordHash string `gorm:"size:100;not null"`
	Role         string `gorm:"size:16;not null;default:user"`

	PasswordChangedAt   *time.Time `gorm:"precision:6"`
	ResetTokenDigest    *string    `gorm:"size:64;index"`
	ResetTokenExpiresAt *time.Time

	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (UserModel) TableName() string { return "users" }

func FromDomain(u *domain.User) *UserModel {
	return &UserModel{
		ID:                  u.ID,
		Email:               u.Email,
		Name:                u.Name,
		PasswordHash:        u.PasswordHash,
		Role:                string(u.Role),
		PasswordChangedAt:   u.PasswordChangedAt,
		ResetTokenDigest:    u.ResetTokenDigest,
		ResetTokenExpiresAt: u.ResetTokenExpiresAt,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

func (m *UserModel) ToDomain() *domain.User {
	return &domain.User{
		ID:                  m.ID,
		Email:               m.Email,
		Name:                m.Name,
		PasswordHash:        m.PasswordHash,
		Role:                domain.Role(m.Role),
		PasswordChangedAt:   m.PasswordChangedAt,
		ResetTokenDigest:    m.ResetTokenDigest,
		ResetTokenExpiresAt: m.ResetTokenExpiresAt,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}
