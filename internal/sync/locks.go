package sync

import (
	"errors"
	gosync "sync"
)

// ErrBusy is returned by Trigger when a run of the same kind and mode is
// already in flight.
var ErrBusy = errors.New("sync already running")

// LockRegistry hands out one non-blocking run lock per (kind, mode) pair.
// Different kinds, or the same kind in different modes, may run concurrently.
type LockRegistry struct {
	mu   gosync.Mutex
	held map[string]bool
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{held: map[string]bool{}}
}

func lockKey(kind Kind, mode Mode) string {
	return string(kind) + "/" + string(mode)
}

// TryAcquire takes the lock for (kind, mode) without blocking. It reports
// whether the caller now holds it.
func (r *LockRegistry) TryAcquire(kind Kind, mode Mode) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := lockKey(kind, mode)
	if r.held[key] {
		return false
	}
	r.held[key] = true
	return true
}

// Release frees the lock for (kind, mode). Releasing a lock that is not held
// is a no-op.
func (r *LockRegistry) Release(kind Kind, mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, lockKey(kind, mode))
}
