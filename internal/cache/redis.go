package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisCache struct {
	Client *redis.Client

	logger   *zap.Logger
	lockTTL  time.Duration
	lockWait time.Duration
}

// NewRedisCache accepts either a redis:// URL or a bare host:port.
func NewRedisCache(url string, lockTTL time.Duration, logger *zap.Logger) (*RedisCache, error) {
	opts := &redis.Options{
		Addr:     url,
		Password: "",
		DB:       0,
	}
	if strings.Contains(url, "://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, err
		}
		opts = parsed
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisCache{
		Client:   client,
		logger:   logger,
		lockTTL:  lockTTL,
		lockWait: 2 * lockTTL,
	}, nil
}

func (r *RedisCache) Close() error {
	return r.Client.Close()
}

/*
* screen locks
 */

// Lock blocks until the key is held or the wait budget runs out.
// The lock expires after lockTTL even if the holder never releases it.
func (r *RedisCache) Lock(ctx context.Context, key string) (unlock func(), err error) {
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, r.lockWait)
	defer cancel()

	backoff := 5 * time.Millisecond
	for {
		ok, err := r.Client.SetNX(ctx, key, token, r.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-time.After(backoff):
		}
		if backoff < 100*time.Millisecond {
			backoff *= 2
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		released, err := releaseLockScript.Run(releaseCtx, r.Client, []string{key}, token).Int()
		if err != nil {
			r.logger.Warn("failed to release lock", zap.String("key", key), zap.Error(err))
			return
		}
		if released == 0 {
			r.logger.Warn("lock expired before release", zap.String("key", key))
		}
	}, nil
}

/*
* once markers
 */

// MarkOnce reports true only for the first caller marking key.
func (r *RedisCache) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.Client.SetNX(ctx, key, "true", ttl).Result()
}
