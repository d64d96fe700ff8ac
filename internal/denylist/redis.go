package denylist

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisDenylist struct {
	rdb    *redis.Client
	prefix string
}

// NewRedis создаёт denylist поверх Redis из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой — используется "denylist:".
func NewRedis(redisURL, prefix string) (Denylist, error) {
	const op = "denylist.NewRedis"

	if prefix == "" {
		prefix = "denylist:"
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

	return &redisDenylist{rdb: rdb, prefix: prefix}, nil
}

func (d *redisDenylist) key(jti string) string { return d.prefix + jti }

// IsRevoked проверяет наличие jti в denylist.
func (d *redisDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	const op = "denylist.IsRevoked"

	n, err := d.rdb.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	return n > 0, nil
}

// Revoke атомарно добавляет jti через SET NX EX.
// SET NX — нативная условная запись Redis: никакого read-then-write,
// при гонке ровно один вызов получает true.
func (d *redisDenylist) Revoke(ctx context.Context, jti string, userID int64, expiresAt time.Time) error {
	const op = "denylist.Revoke"

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Токен уже истёк — запись не нужна, истечение отсеет его само.
		return nil
	}

	ok, err := d.rdb.SetNX(ctx, d.key(jti), strconv.FormatInt(userID, 10), ttl).Result()
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	if !ok {
		return fmt.Errorf("%s: %w", op, ErrAlreadyRevoked)
	}

	return nil
}

// Ping проверяет доступность Redis (используется /redis-check).
func (d *redisDenylist) Ping(ctx context.Context) error {
	return d.rdb.Ping(ctx).Err()
}

// Close закрывает клиент Redis.
func (d *redisDenylist) Close() error { return d.rdb.Close() }
