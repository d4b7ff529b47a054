package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"go-gin-auth-service/internal/domain"
	"go-gin-auth-service/internal/feature/user"
	"go-gin-auth-service/pkg/utils"
)

// 默认查询不取 password_hash 与 reset_token_digest
var publicColumns = []string{
	"id", "email", "name", "role",
	"password_changed_at", "reset_token_expires_at",
	"created_at", "updated_at",
}

type UserRepo struct{ db *gorm.DB }

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	m := user.FromDomain(u)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		if isDupKey(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	u.CreatedAt, u.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *UserRepo) take(ctx context.Context, withSecrets bool, query string, args ...any) (*domain.User, error) {
	var m user.UserModel
	tx := r.db.WithContext(ctx)
	if !withSecrets {
		tx = tx.Select(publicColumns)
	}
	err := tx.Where(query, args...).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *UserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.take(ctx, false, "id = ?", id)
}

func (r *UserRepo) FindByIDWithPassword(ctx context.Context, id string) (*domain.User, error) {
	return r.take(ctx, true, "id = ?", id)
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.take(ctx, false, "email = ?", email)
}

func (r *UserRepo) FindByEmailWithPassword(ctx context.Context, email string) (*domain.User, error) {
	return r.take(ctx, true, "email = ?", email)
}

func (r *UserRepo) FindByResetDigest(ctx context.Context, digest string, now time.Time) (*domain.User, error) {
	return r.take(ctx, true, "reset_token_digest = ? AND reset_token_expires_at > ?", digest, now)
}

// updateByID 单条原子更新；未命中（含已软删）返回 ErrNotFound
func (r *UserRepo) updateByID(ctx context.Context, id string, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&user.UserModel{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *UserRepo) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	return r.updateByID(ctx, id, map[string]any{
		"reset_token_digest":     digest,
		"reset_token_expires_at": expiresAt,
	})
}

func (r *UserRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.updateByID(ctx, id, map[string]any{
		"reset_token_digest":     nil,
		"reset_token_expires_at": nil,
	})
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	return r.updateByID(ctx, id, map[string]any{
		"password_hash":          hash,
		"password_changed_at":    changedAt,
		"reset_token_digest":     nil,
		"reset_token_expires_at": nil,
	})
}

func (r *UserRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.User, int64, error) {
	scope := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&user.UserModel{})
		if f.WithDeleted {
			tx = tx.Unscoped()
		}
		if q := strings.TrimSpace(f.Query); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			tx = tx.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like)
		}
		return tx
	}
	var total int64
	if err := scope().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []user.UserModel
	if err := scope().Select(publicColumns).Order("created_at desc").Offset(f.Offset).Limit(f.Limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&user.UserModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
