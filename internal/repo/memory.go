package repo

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go-gin-auth-service/internal/domain"
	"go-gin-auth-service/pkg/utils"
)

// MemoryUserRepo 进程内实现：db.driver=memory 的本地开发与测试使用
type MemoryUserRepo struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	deleted map[string]time.Time
	now     func() time.Time
}

var _ domain.UserRepository = (*MemoryUserRepo)(nil)

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{
		byID:    map[string]*domain.User{},
		deleted: map[string]time.Time{},
		now:     time.Now,
	}
}

func clone(u *domain.User, withSecrets bool) *domain.User {
	c := *u
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		c.PasswordChangedAt = &t
	}
	if u.ResetTokenExpiresAt != nil {
		t := *u.ResetTokenExpiresAt
		c.ResetTokenExpiresAt = &t
	}
	c.ResetTokenDigest = nil
	if withSecrets {
		if u.ResetTokenDigest != nil {
			d := *u.ResetTokenDigest
			c.ResetTokenDigest = &d
		}
	} else {
		c.PasswordHash = ""
	}
	return &c
}

func (r *MemoryUserRepo) live(id string) (*domain.User, bool) {
	u, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	if _, gone := r.deleted[id]; gone {
		return nil, false
	}
	return u, true
}

func (r *MemoryUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// 唯一索引包含已软删的记录，与数据库行为一致
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return domain.ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = utils.NewID()
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	now := r.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.byID[u.ID] = clone(u, true)
	return nil
}

func (r *MemoryUserRepo) find(match func(*domain.User) bool, withSecrets bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, u := range r.byID {
		if _, gone := r.deleted[id]; gone {
			continue
		}
		if match(u) {
			return clone(u, withSecrets), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MemoryUserRepo) byKey(id string, withSecrets bool) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.live(id)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(u, withSecrets), nil
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	return r.byKey(id, false)
}

func (r *MemoryUserRepo) FindByIDWithPassword(_ context.Context, id string) (*domain.User, error) {
	return r.byKey(id, true)
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email }, false)
}

func (r *MemoryUserRepo) FindByEmailWithPassword(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email }, true)
}

func (r *MemoryUserRepo) FindByResetDigest(_ context.Context, digest string, now time.Time) (*domain.User, error) {
	return r.find(func(u *domain.User) bool {
		return u.ResetTokenDigest != nil && *u.ResetTokenDigest == digest &&
			u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(now)
	}, true)
}

func (r *MemoryUserRepo) update(id string, fn func(*domain.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.live(id)
	if !ok {
		return domain.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = r.now()
	return nil
}

func (r *MemoryUserRepo) SetResetToken(_ context.Context, id, digest string, expiresAt time.Time) error {
	return r.update(id, func(u *domain.User) {
		u.ResetTokenDigest = &digest
		u.ResetTokenExpiresAt = &expiresAt
	})
}

func (r *MemoryUserRepo) ClearResetToken(_ context.Context, id string) error {
	return r.update(id, func(u *domain.User) {
		u.ResetTokenDigest = nil
		u.ResetTokenExpiresAt = nil
	})
}

func (r *MemoryUserRepo) UpdatePassword(_ context.Context, id, hash string, changedAt time.Time) error {
	return r.update(id, func(u *domain.User) {
		u.PasswordHash = hash
		u.PasswordChangedAt = &changedAt
		u.ResetTokenDigest = nil
		u.ResetTokenExpiresAt = nil
	})
}

func (r *MemoryUserRepo) List(_ context.Context, f domain.ListFilter) ([]domain.User, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(f.Query))
	var matched []*domain.User
	for id, u := range r.byID {
		if _, gone := r.deleted[id]; gone && !f.WithDeleted {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(u.Email), q) && !strings.Contains(strings.ToLower(u.Name), q) {
			continue
		}
		matched = append(matched, u)
	}
	slices.SortFunc(matched, func(a, b *domain.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	total := int64(len(matched))
	start := min(max(f.Offset, 0), len(matched))
	end := len(matched)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(matched))
	}
	out := make([]domain.User, 0, end-start)
	for _, u := range matched[start:end] {
		out = append(out, *clone(u, false))
	}
	return out, total, nil
}

func (r *MemoryUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live(id); !ok {
		return domain.ErrNotFound
	}
	r.deleted[id] = r.now()
	return nil
}
