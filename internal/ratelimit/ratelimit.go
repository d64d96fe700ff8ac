// ratelimit ограничивает частоту операций фиксированным окном поверх Redis.
// Используется для /auth/login (по IP), чтобы затруднить перебор паролей.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter — контракт ограничителя частоты.
type Limiter interface {
	// Allow сообщает, укладывается ли очередная попытка по ключу в лимит.
	Allow(ctx context.Context, key string) (bool, error)
	// Close закрывает соединение.
	Close() error
}

type redisLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

// NewRedis создаёт лимитер фиксированного окна: не более limit попыток
// на ключ за window. Если prefix пустой — используется "ratelimit:".
func NewRedis(redisURL, prefix string, limit int64, window time.Duration) (Limiter, error) {
	const op = "ratelimit.NewRedis"

	if prefix == "" {
		prefix = "ratelimit:"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &redisLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}, nil
}

// Allow инкрементирует счётчик окна атомарно (INCR + EXPIRE NX в пайплайне).
func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	const op = "ratelimit.Allow"

	k := l.prefix + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return incr.Val() <= l.limit, nil
}

// Close закрывает клиент Redis.
func (l *redisLimiter) Close() error { return l.rdb.Close() }
