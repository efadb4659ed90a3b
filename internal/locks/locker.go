// Package locks provides the short-lived named lock that serializes
// DoTransition calls per workflow instance across interactive requests,
// escalation checks and event triggers.
package locks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InstanceLocker acquires a mutual-exclusion lock keyed by instance ID.
// The returned release func must be called unconditionally, including on
// error paths. Acquire returns errs.ErrLockTimeout when the lock cannot be
// taken within the configured wait.
type InstanceLocker interface {
	Acquire(ctx context.Context, instanceID uuid.UUID, ttl time.Duration) (release func(), err error)
}
