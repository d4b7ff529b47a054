package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

type Cache struct {
	RDB    *redis.Client
	Prefix string
	sf     singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}))
}

func NewWithClient(rdb *redis.Client) *Cache {
	return &Cache{RDB: rdb, Prefix: "auth:"}
}

func (c *Cache) key(k string) string { return c.Prefix + k }

// genTTL 代数 key 的保留时间，远长于任何一次回源
const genTTL = 24 * time.Hour

func (c *Cache) genKey(k string) string { return c.Prefix + "gen:" + k }

// generation 读取 key 的失效代数；从未失效过为 "0"
func (c *Cache) generation(ctx context.Context, key string) (string, error) {
	g, err := c.RDB.Get(ctx, c.genKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return g, err
}

// GetOrLoad 读缓存；未命中用 singleflight 合并回源。Redis 不可用时直接回源。
// 回源前记下失效代数，只有代数未变才回写：Delete 之后到达的旧数据不会被写回。
// 共享回源不受单个调用方取消的影响。
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	k := c.key(key)
	if b, err := c.RDB.Get(ctx, k).Bytes(); err == nil {
		return b, nil
	}
	gen, genErr := c.generation(ctx, key)
	flight := k
	if genErr == nil {
		flight = k + "@" + gen
	}

	ch := c.sf.DoChan(flight, func() (any, error) {
		lctx := context.WithoutCancel(ctx)
		b, err := load(lctx)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			_ = c.storeIfCurrent(lctx, key, gen, b, ttl)
		}
		return b, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// storeIfCurrent WATCH 代数 key，代数仍为 gen 时才写入
func (c *Cache) storeIfCurrent(ctx context.Context, key, gen string, b []byte, ttl time.Duration) error {
	gk := c.genKey(key)
	return c.RDB.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Result()
		if errors.Is(err, redis.Nil) {
			cur, err = "0", nil
		}
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleLoad
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, c.key(key), b, ttl)
			return nil
		})
		return err
	}, gk)
}

var errStaleLoad = errors.New("cache: generation moved during load")

// Delete 失效一组 key，同时推进代数，让进行中的回源放弃回写
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := c.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Incr(ctx, c.genKey(k))
			p.Expire(ctx, c.genKey(k), genTTL)
			p.Del(ctx, c.key(k))
		}
		return nil
	})
	return err
}

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func (c *Cache) Close() error { return c.RDB.Close() }
