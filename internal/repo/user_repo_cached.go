package repo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-gin-auth-service/internal/core/cache"
	"go-gin-auth-service/internal/domain"
)

// CachedUserRepo FindByID 走 Redis 读穿（鉴权每个请求都要查一次用户），其余方法直通；
// 任何变更后删除 user:<id>。删除失败只记日志，TTL 兜底。
type CachedUserRepo struct {
	domain.UserRepository
	cache *cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

var _ domain.UserRepository = (*CachedUserRepo)(nil)

func NewCachedUserRepo(inner domain.UserRepository, c *cache.Cache, ttl time.Duration, l *zap.Logger) *CachedUserRepo {
	if l == nil {
		l = zap.NewNop()
	}
	return &CachedUserRepo{UserRepository: inner, cache: c, ttl: ttl, log: l}
}

func userKey(id string) string { return "user:" + id }

func (r *CachedUserRepo) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return cache.GetOrLoadJSON(r.cache, ctx, userKey(id), r.ttl, func(ctx context.Context) (*domain.User, error) {
		return r.UserRepository.FindByID(ctx, id)
	})
}

func (r *CachedUserRepo) evict(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, userKey(id)); err != nil {
		r.log.Warn("user cache evict failed", zap.String("uid", id), zap.Error(err))
	}
}

func (r *CachedUserRepo) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	err := r.UserRepository.SetResetToken(ctx, id, digest, expiresAt)
	r.evict(ctx, id)
	return err
}

func (r *CachedUserRepo) ClearResetToken(ctx context.Context, id string) error {
	err := r.UserRepository.ClearResetToken(ctx, id)
	r.evict(ctx, id)
	return err
}

func (r *CachedUserRepo) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	err := r.UserRepository.UpdatePassword(ctx, id, hash, changedAt)
	r.evict(ctx, id)
	return err
}

func (r *CachedUserRepo) Delete(ctx context.Context, id string) error {
	err := r.UserRepository.Delete(ctx, id)
	r.evict(ctx, id)
	return err
}
