package rate

import (
	"context"
	"fmt"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// RedisLimiter: ventana fija por categoría (INCR + EXPIRE). Estado compartido
// entre instancias; drop-in del MemoryLimiter para despliegues horizontales.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Limits map[Category]Limit
}

func NewRedisLimiter(client *rdb.Client, prefix string, limits map[Category]Limit) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Limits: limits}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, cat Category) (Result, error) {
	lim, ok := l.Limits[cat]
	if !ok {
		lim = l.Limits[CategoryGeneral]
	}
	if lim.Capacity <= 0 || lim.Window <= 0 {
		return Result{Allowed: true, Remaining: -1}, nil
	}

	now := time.Now().UTC()
	winStart := now.Truncate(lim.Window)
	redisKey := fmt.Sprintf("%s%s:%s:%d", l.Prefix, string(cat),
		strings.ReplaceAll(key, " ", "_"), winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	// set expiry on first hit
	if incr.Val() == 1 {
		_ = l.Client.Expire(ctx, redisKey, lim.Window).Err()
		ttl = l.Client.TTL(ctx, redisKey)
	}

	hits := incr.Val()
	allowed := hits <= int64(lim.Capacity)
	remaining := int64(lim.Capacity) - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{Allowed: allowed, Remaining: remaining}
	if !allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = ttl.Val()
		if res.RetryAfter < 0 {
			res.RetryAfter = lim.Window
		}
	}
	return res, nil
}
