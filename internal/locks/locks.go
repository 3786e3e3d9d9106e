// Package locks provides the per-raffle mutual exclusion used while numbers are
// allocated. LocalLocker serves a single process; RedisLocker serves several API
// replicas sharing one Redis.
package locks

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when the lock could not be acquired in time
var ErrLockTimeout = errors.New("lock wait timed out")

// Locker acquires an exclusive lock on a key. The returned unlock function must
// be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
