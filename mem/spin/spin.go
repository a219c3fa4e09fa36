// Package spin provides a minimal compare-and-swap lock for short critical
// sections inside allocators.
//
// A Lock never allocates and never parks the goroutine on a runtime
// semaphore, so it is safe to hold while manipulating allocator free lists.
// On contention the waiter first yields its time slice and, when repeated
// yields do not make progress, sleeps for a short, doubling interval.
//
// There is no ownership tracking, no reentrancy and no fairness guarantee.
package spin

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joshuapare/memkit/internal/debug"
)

const (
	stateFree   int32 = 0
	stateLocked int32 = 1

	// maxYields is the number of consecutive failed yields before sleeping.
	maxYields = 16

	minSleep = time.Microsecond
	maxSleep = time.Millisecond
)

// Lock is a spin-then-yield mutual exclusion lock. The zero value is unlocked.
// A Lock must not be copied after first use.
type Lock struct {
	_     noCopy
	state atomic.Int32
}

var _ sync.Locker = (*Lock)(nil)

// Lock blocks until the lock is acquired. It never fails.
func (l *Lock) Lock() {
	if l.TryLock() {
		return
	}
	l.lockSlow()
}

func (l *Lock) lockSlow() {
	yields := 0
	nap := minSleep
	for !l.TryLock() {
		if yields < maxYields {
			runtime.Gosched()
			yields++
			continue
		}
		time.Sleep(nap)
		if nap < maxSleep {
			nap <<= 1
		}
		yields = 0
	}
}

// TryLock attempts to acquire the lock without blocking and reports
// whether it succeeded.
func (l *Lock) TryLock() bool {
	if l.state.Load() != stateFree {
		return false
	}
	return l.state.CompareAndSwap(stateFree, stateLocked)
}

// Unlock releases the lock. Calling Unlock on a lock that is not held is
// undefined; memdebug builds panic.
func (l *Lock) Unlock() {
	if debug.Enabled {
		old := l.state.Swap(stateFree)
		debug.Assert(old == stateLocked, "spin: unlock of unlocked lock")
		return
	}
	l.state.Store(stateFree)
}

// Locked reports whether the lock is currently held by someone.
// The answer may be stale by the time the caller looks at it.
func (l *Lock) Locked() bool {
	return l.state.Load() == stateLocked
}

// noCopy lets go vet's copylocks check flag accidental copies.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
