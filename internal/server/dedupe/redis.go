package dedupe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/vaultdrop/internal/common"
	"github.com/gomodule/redigo/redis"
)

const keyPrefix = "vaultdrop:click:"

// ConnGetter is satisfied by *redis.Pool.
type ConnGetter interface {
	GetContext(ctx context.Context) (redis.Conn, error)
}

// Redis is a Guard shared by every server instance behind one Redis.
type Redis struct {
	pool   ConnGetter
	window time.Duration
}

func NewRedis(pool ConnGetter, window time.Duration) *Redis {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Redis{pool: pool, window: window}
}

// NewPool returns a small pool dialing addr.
func NewPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 4 * time.Minute,
		DialContext: func(ctx context.Context) (redis.Conn, error) {
			return redis.DialContext(ctx, "tcp", addr,
				redis.DialConnectTimeout(5*time.Second),
				redis.DialReadTimeout(5*time.Second),
			)
		},
	}
}

func (r *Redis) FirstSeen(ctx context.Context, key string) (bool, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: redis: %v", common.ErrStorageUnavailable, err)
	}
	defer conn.Close()

	_, err = redis.String(redis.DoContext(conn, ctx, "SET", keyPrefix+key, "1", "NX", "PX", r.window.Milliseconds()))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.ErrNil):
		return false, nil
	default:
		return false, fmt.Errorf("%w: redis: %v", common.ErrStorageUnavailable, err)
	}
}

func (r *Redis) Seen(ctx context.Context, key string) (bool, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: redis: %v", common.ErrStorageUnavailable, err)
	}
	defer conn.Close()

	n, err := redis.Int(redis.DoContext(conn, ctx, "EXISTS", keyPrefix+key))
	if err != nil {
		return false, fmt.Errorf("%w: redis: %v", common.ErrStorageUnavailable, err)
	}
	return n > 0, nil
}

func (r *Redis) Forget(ctx context.Context, key string) error {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: redis: %v", common.ErrStorageUnavailable, err)
	}
	defer conn.Close()

	if _, err := redis.DoContext(conn, ctx, "DEL", keyPrefix+key); err != nil {
		return fmt.Errorf("%w: redis: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}
