package auth

import (
	"context"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultHashCost bcrypt 2^12 轮
const DefaultHashCost = 12

type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	// Verify 对格式错误的摘要返回 false，不报错
	Verify(ctx context.Context, password, digest string) bool
}

// BcryptHasher 盐内嵌在摘要里；计算受 worker 池约束，避免突发哈希占满 CPU
type BcryptHasher struct {
	cost int
	pool *semaphore.Weighted
}

func NewBcryptHasher(cost, workers int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &BcryptHasher{cost: cost, pool: semaphore.NewWeighted(int64(workers))}
}

func (h *BcryptHasher) Cost() int { return h.cost }

func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.pool.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.pool.Release(1)

	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, password, digest string) bool {
	if digest == "" {
		return false
	}
	if err := h.pool.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.pool.Release(1)

	// CompareHashAndPassword 内部使用 subtle.ConstantTimeCompare
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
