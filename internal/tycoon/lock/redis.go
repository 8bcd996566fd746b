package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"go.uber.org/zap"
)

const redisKeyPrefix = "tycoon:lock:"

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisLocker implements Locker with SET NX PX and a compare-and-delete
// release, so an expired lock taken over by another worker is never freed
// by the previous holder.
type RedisLocker struct {
	rdb    redis.UniversalClient
	logger *zap.Logger
}

// NewRedisLocker connects to redis and verifies the connection.
func NewRedisLocker(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*RedisLocker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisLockerFromClient(rdb, logger), nil
}

func NewRedisLockerFromClient(rdb redis.UniversalClient, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, logger: logger.Named("redis_locker")}
}

func (r *RedisLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("redis lock %q needs a positive ttl: %w", name, e.ErrInvalidInput)
	}
	key := redisKeyPrefix + name
	token := uuid.NewString()

	ok, err := r.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %q: %w", name, err)
	}
	if !ok {
		return nil, e.ErrLockHeld
	}

	return func() {
		// the job context may already be cancelled
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.rdb, []string{key}, token).Err(); err != nil {
			r.logger.Warn("Failed to release lock", zap.String("lock", name), zap.Error(err))
		}
	}, nil
}

func (r *RedisLocker) Close() error {
	return r.rdb.Close()
}
