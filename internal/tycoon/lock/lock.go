// Package lock provides named, expiring job locks so that two worker
// processes never run the same job at the same time.
package lock

import (
	"context"
	"sync"
	"time"

	e "github.com/thong2085/dev-tycoon-sub000/internal/tycoon/errors"
)

// Locker hands out named locks. TryLock never waits: a lock held elsewhere
// returns errors.ErrLockHeld. The ttl bounds how long a crashed holder can
// keep the lock; backends without expiry release it when the session ends.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(), err error)
}

// MemoryLocker is a process-local Locker.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]lease
	seq  uint64
	now  func() time.Time
}

type lease struct {
	id      uint64
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]lease),
		now:  time.Now,
	}
}

func (m *MemoryLocker) TryLock(_ context.Context, name string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if l, ok := m.held[name]; ok && (l.expires.IsZero() || now.Before(l.expires)) {
		return nil, e.ErrLockHeld
	}

	m.seq++
	l := lease{id: m.seq}
	if ttl > 0 {
		l.expires = now.Add(ttl)
	}
	m.held[name] = l

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			// an expired lease may have been taken over
			if cur, ok := m.held[name]; ok && cur.id == l.id {
				delete(m.held, name)
			}
		})
	}, nil
}
