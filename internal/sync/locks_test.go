package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockRegistryAcquireRelease(t *testing.T) {
	locks := NewLockRegistry()

	assert.True(t, locks.TryAcquire(KindJobs, ModePartial))
	assert.False(t, locks.TryAcquire(KindJobs, ModePartial), "second acquire must report busy")

	locks.Release(KindJobs, ModePartial)
	assert.True(t, locks.TryAcquire(KindJobs, ModePartial), "released lock must be acquirable again")
}

func TestLockRegistryKeysAreIndependent(t *testing.T) {
	locks := NewLockRegistry()

	assert.True(t, locks.TryAcquire(KindJobs, ModePartial))
	assert.True(t, locks.TryAcquire(KindJobs, ModeFull), "same kind, other mode")
	assert.True(t, locks.TryAcquire(KindJunit, ModePartial), "other kind, same mode")
}

func TestLockRegistryReleaseIsIdempotent(t *testing.T) {
	locks := NewLockRegistry()

	locks.Release(KindCoverage, ModeFull)
	assert.True(t, locks.TryAcquire(KindCoverage, ModeFull))
	locks.Release(KindCoverage, ModeFull)
	locks.Release(KindCoverage, ModeFull)
	assert.True(t, locks.TryAcquire(KindCoverage, ModeFull))
}
