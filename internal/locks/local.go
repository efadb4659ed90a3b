package locks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orvane/docflow-backend/internal/errs"
)

// LocalLocker is an in-process InstanceLocker for single-node deployments
// and tests. Lock TTLs are ignored; a lock lives until released.
type LocalLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]chan struct{}
	wait time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	if wait <= 0 {
		wait = 3 * time.Second
	}
	return &LocalLocker{held: make(map[uuid.UUID]chan struct{}), wait: wait}
}

func (l *LocalLocker) Acquire(ctx context.Context, instanceID uuid.UUID, _ time.Duration) (func(), error) {
	deadline := time.Now().Add(l.wait)
	for {
		l.mu.Lock()
		ch, busy := l.held[instanceID]
		if !busy {
			done := make(chan struct{})
			l.held[instanceID] = done
			l.mu.Unlock()
			var once sync.Once
			release := func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, instanceID)
					l.mu.Unlock()
					close(done)
				})
			}
			return release, nil
		}
		l.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, errs.ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, errs.ErrLockTimeout
		case <-ch:
		case <-time.After(remaining):
			return nil, errs.ErrLockTimeout
		}
	}
}
