package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/hotnot-platform-poc/internal/content-shard/service"
)

// RedisStatusCache guarda o status de aposta de cada post com TTL curto.
// O TTL é o teto de staleness: a troca de slot aparece no máximo depois
// dele, e escritas invalidam na hora.
type RedisStatusCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisStatusCache(c *redis.Client, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{Client: c, TTL: ttl}
}

func key(postID string) string { return "betting:status:" + postID }

func (r *RedisStatusCache) Get(ctx context.Context, postID string) (*service.BettingStatus, bool) {
	raw, err := r.Client.Get(ctx, key(postID)).Bytes()
	if err != nil {
		return nil, false
	}
	var st service.BettingStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, false
	}
	return &st, true
}

func (r *RedisStatusCache) Set(ctx context.Context, postID string, st service.BettingStatus) {
	b, err := json.Marshal(st)
	if err != nil {
		return
	}
	_ = r.Client.Set(ctx, key(postID), b, r.TTL).Err()
}

func (r *RedisStatusCache) Invalidate(ctx context.Context, postID string) {
	_ = r.Client.Del(ctx, key(postID)).Err()
}
