package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/errs"
	"go-gin-auth-service/internal/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type UserService struct {
	users   domain.UserRepository
	log     *zap.Logger
	metrics *Metrics
}

func NewUserService(users domain.UserRepository, l *zap.Logger, m *Metrics) *UserService {
	if l == nil {
		l = zap.NewNop()
	}
	return &UserService{users: users, log: l.Named("users"), metrics: m}
}

type ListQuery struct {
	Offset      int
	Limit       int
	Query       string
	WithDeleted bool
}

type UserPage struct {
	Users []domain.PublicUser
	Total int64
}

func (s *UserService) List(ctx context.Context, q ListQuery) (*UserPage, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	q.Limit = min(q.Limit, MaxPageSize)
	q.Offset = max(q.Offset, 0)

	rows, total, err := s.users.List(ctx, domain.ListFilter{
		Offset: q.Offset, Limit: q.Limit, Query: q.Query, WithDeleted: q.WithDeleted,
	})
	if err != nil {
		return nil, errs.Internal("list users failed", err)
	}
	out := make([]domain.PublicUser, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].Public())
	}
	return &UserPage{Users: out, Total: total}, nil
}

func (s *UserService) Profile(ctx context.Context, uid string) (*domain.PublicUser, error) {
	u, err := s.users.FindByID(ctx, uid)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errs.Unauthorized("the user belonging to this token no longer exists")
	}
	if err != nil {
		return nil, errs.Internal("load user failed", err)
	}
	pub := u.Public()
	return &pub, nil
}

// Delete 管理员账号不可删除；目标不存在与受保护同样返回 403
func (s *UserService) Delete(ctx context.Context, actorID, targetID string) (err error) {
	defer func() { s.metrics.observe(EventDelete, err) }()

	target, err := s.users.FindByID(ctx, targetID)
	if errors.Is(err, domain.ErrNotFound) {
		return errs.Forbidden("no user found with that id")
	}
	if err != nil {
		return errs.Internal("load user failed", err)
	}
	if target.Role.Elevated() {
		return errs.Forbidden("admin accounts cannot be deleted")
	}
	if err := s.users.Delete(context.WithoutCancel(ctx), targetID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return errs.Forbidden("no user found with that id")
		}
		return errs.Internal("delete user failed", err)
	}
	s.log.Info("user deleted", zap.String("uid", targetID), zap.String("by", actorID))
	return nil
}
