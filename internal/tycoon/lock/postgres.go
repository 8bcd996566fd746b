package lock

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
	"go.uber.org/zap"
)

// PostgresLocker implements Locker with session-level advisory locks. Each
// held lock pins one pooled connection until released; the ttl is ignored
// because postgres frees the lock when the session dies.
type PostgresLocker struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresLocker(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresLocker, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresLocker{pool: pool, logger: logger.Named("pg_locker")}, nil
}

// advisoryKey maps a lock name onto the bigint key space of pg advisory locks.
func advisoryKey(name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("tycoon:" + name))
	return int64(h.Sum64())
}

func (p *PostgresLocker) TryLock(ctx context.Context, name string, _ time.Duration) (func(), error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	key := advisoryKey(name)
	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to acquire lock %q: %w", name, err)
	}
	if !ok {
		conn.Release()
		return nil, e.ErrLockHeld
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", key); err != nil {
			p.logger.Warn("Failed to release advisory lock", zap.String("lock", name), zap.Error(err))
			// a connection still holding the lock must not go back to the pool
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}, nil
}

func (p *PostgresLocker) Close() {
	p.pool.Close()
}
