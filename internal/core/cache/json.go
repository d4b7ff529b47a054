package cache

import (
	"context"
	"encoding/json"
	"time"
)

// GetOrLoadJSON 按 JSON 编解码的读穿缓存；load 出错不写缓存。
// 缓存里的值解不开时删掉该 key 并直接回源一次。
func GetOrLoadJSON[T any](c *Cache, ctx context.Context, key string, ttl time.Duration, load func(context.Context) (*T, error)) (*T, error) {
	encode := func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}
	raw, err := c.GetOrLoad(ctx, key, ttl, encode)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if json.Unmarshal(raw, out) == nil {
		return out, nil
	}
	_ = c.Delete(ctx, key)
	return load(ctx)
}
