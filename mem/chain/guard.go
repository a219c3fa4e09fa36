package chain

import (
	"sync/atomic"

	"github.com/joshuapare/memkit/internal/debug"
	"github.com/joshuapare/memkit/internal/logger"
)

// Guard keeps a registry, and the allocators it owns, alive.
//
// Any long-lived object that owns or references pool memory should hold a
// Guard for as long as it may still free into that memory. Release the guard
// when the object is done. The process-wide registry also holds a reference
// of its own until Shutdown, so it is torn down only after Shutdown and the
// release of its last guard.
type Guard struct {
	reg      *Registry
	released atomic.Bool
}

// Acquire takes a guard on the process-wide registry, creating the registry
// if needed.
func Acquire() *Guard {
	for {
		if g := Instance().tryAcquire(); g != nil {
			return g
		}
	}
}

// Acquire takes a guard on r. It returns nil if r was already torn down.
func (r *Registry) Acquire() *Guard {
	return r.tryAcquire()
}

func (r *Registry) tryAcquire() *Guard {
	r.lock.Lock()
	if r.dead.Load() {
		r.lock.Unlock()
		return nil
	}
	r.refs++
	refs := r.refs
	r.lock.Unlock()

	debug.Assert(refs > 0, "chain: invalid reference count %d", refs)
	return &Guard{reg: r}
}

// Registry returns the registry this guard keeps alive.
func (g *Guard) Registry() *Registry { return g.reg }

// Release drops the guard. Releasing twice is a no-op.
func (g *Guard) Release() {
	if g == nil || g.released.Swap(true) {
		return
	}
	g.reg.release()
}

func (r *Registry) release() {
	r.lock.Lock()
	r.refs--
	refs := r.refs
	if refs < 0 {
		r.refs = 0
	}
	r.lock.Unlock()

	if refs < 0 {
		debug.Assert(false, "chain: reference count underflow (%d)", refs)
		logger.Error("chain: reference count underflow", "refs", refs)
		return
	}
	if refs == 0 {
		r.teardown()
	}
}
