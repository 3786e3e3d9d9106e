package locks

import (
	"context"
	"sync"
	"time"
)

// LocalLocker is an in-process keyed lock. Entries are reference counted and
// removed when the last holder or waiter leaves.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	wait    time.Duration
}

// LocalOption configures a LocalLocker
type LocalOption func(*LocalLocker)

// WithLocalWait bounds how long Lock queues behind another holder
func WithLocalWait(d time.Duration) LocalOption {
	return func(l *LocalLocker) {
		if d > 0 {
			l.wait = d
		}
	}
}

type localEntry struct {
	ch   chan struct{}
	refs int
}

// NewLocalLocker creates a LocalLocker that waits up to 3s for a busy key
func NewLocalLocker(opts ...LocalOption) *LocalLocker {
	l := &LocalLocker{
		entries: make(map[string]*localEntry),
		wait:    3 * time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Lock blocks until key is free, the wait budget is spent or ctx is done.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	l.mu.Lock()
	ent, ok := l.entries[key]
	if !ok {
		ent = &localEntry{ch: make(chan struct{}, 1)}
		l.entries[key] = ent
	}
	ent.refs++
	l.mu.Unlock()

	select {
	case ent.ch <- struct{}{}:
	case <-waitCtx.Done():
		l.leave(key, ent)
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ent.ch
			l.leave(key, ent)
		})
	}, nil
}

func (l *LocalLocker) leave(key string, ent *localEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ent.refs--
	if ent.refs == 0 {
		delete(l.entries, key)
	}
}

// Len reports how many keys are currently locked or awaited.
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
