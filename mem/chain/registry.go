package chain

import (
	"io"
	"iter"
	"sync/atomic"

	"github.com/joshuapare/memkit/internal/debug"
	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/mem/spin"
)

// Registry is a lock-protected list of live allocators plus the reference
// count that keeps it alive.
type Registry struct {
	lock  spin.Lock
	first *Link // guarded by lock
	count int   // guarded by lock
	refs  int32 // guarded by lock
	dead  atomic.Bool

	// holder is the reference Instance takes for the process itself.
	holder atomic.Pointer[Guard]
}

// New returns an empty, unreferenced registry. Most code uses Instance.
func New() *Registry {
	return &Registry{}
}

var (
	instanceLock spin.Lock
	instance     atomic.Pointer[Registry]
)

// Instance returns the process-wide registry, creating it on first use.
//
// A registry created here starts with one reference owned by the process, so
// guards taken and released by callers never bring it to zero on their own.
// Shutdown drops that reference.
func Instance() *Registry {
	if r := instance.Load(); r != nil {
		return r
	}
	instanceLock.Lock()
	defer instanceLock.Unlock()
	if r := instance.Load(); r != nil {
		return r
	}
	r := New()
	r.holder.Store(r.tryAcquire())
	instance.Store(r)
	return r
}

// Shutdown drops the process reference on the current process-wide registry.
// Once every other guard is released too, the registry is torn down and its
// allocators are closed. Calling it again before a new registry exists is a
// no-op.
func Shutdown() {
	if r := instance.Load(); r != nil {
		r.holder.Swap(nil).Release()
	}
}

// Join appends m to the process-wide registry. If the registry is torn down
// while m is joining, m joins its replacement.
func Join(m Member) {
	for {
		r := Instance()
		if r.join(m) || r.Alive() {
			return
		}
		instance.CompareAndSwap(r, nil)
	}
}

// Leave removes m from whichever registry it joined. Members that are not
// registered are ignored.
func Leave(m Member) {
	if r := m.link().reg.Load(); r != nil {
		r.Leave(m)
	}
}

// Cleanup purges every allocator in the process-wide registry.
func Cleanup() int64 { return Instance().Cleanup() }

// FirstAllocator returns the first allocator in the process-wide registry.
func FirstAllocator() Member { return Instance().FirstAllocator() }

// Join appends m at the tail of the list. Joining a torn-down registry is
// ignored.
func (r *Registry) Join(m Member) {
	if !r.join(m) && !r.Alive() {
		logger.Warn("chain: join on torn-down registry ignored", "allocator", m.Location().String())
	}
}

// join reports whether m was linked into r.
func (r *Registry) join(m Member) bool {
	l := m.link()

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.dead.Load() {
		return false
	}
	if l.reg.Load() != nil {
		debug.Assert(false, "chain: allocator joined twice")
		logger.Error("chain: allocator joined twice", "allocator", m.Location().String())
		return false
	}

	l.owner = m
	l.next.Store(nil)
	if r.first == nil {
		r.first = l
	} else {
		last := r.first
		for n := last.next.Load(); n != nil; n = last.next.Load() {
			last = n
		}
		last.next.Store(l)
	}
	r.count++
	l.reg.Store(r)
	return true
}

// Leave unlinks m. It reports whether m was found.
//
// The leaving link keeps its forward pointer so a concurrent walk that is
// standing on it can still move on.
func (r *Registry) Leave(m Member) bool {
	l := m.link()

	r.lock.Lock()
	defer r.lock.Unlock()

	found := false
	if r.first == l {
		r.first = l.next.Load()
		found = true
	} else {
		for p := r.first; p != nil; p = p.next.Load() {
			if p.next.Load() == l {
				p.next.Store(l.next.Load())
				found = true
				break
			}
		}
	}
	if !found {
		debug.Assert(false, "chain: allocator not found on leave")
		logger.Error("chain: allocator not found on leave", "allocator", m.Location().String())
		return false
	}
	r.count--
	l.reg.CompareAndSwap(r, nil)
	return true
}

// snapshot copies the member list. Caller holds r.lock.
func (r *Registry) snapshot() []Member {
	members := make([]Member, 0, r.count)
	for l := r.first; l != nil; l = l.next.Load() {
		members = append(members, l.owner)
	}
	return members
}

// Cleanup purges every registered allocator and returns the total bytes
// reclaimed. Purge runs outside the registry lock.
func (r *Registry) Cleanup() int64 {
	r.lock.Lock()
	members := r.snapshot()
	r.lock.Unlock()

	var purged int64
	for _, m := range members {
		purged += m.Purge()
	}
	if purged > 0 {
		logger.Debug("chain: cleanup", "allocators", len(members), "purged", purged)
	}
	return purged
}

// FirstAllocator returns the first registered allocator, or nil.
func (r *Registry) FirstAllocator() Member {
	r.lock.Lock()
	first := r.first
	r.lock.Unlock()
	if first == nil {
		return nil
	}
	return first.owner
}

// All walks the registered allocators in registration order.
func (r *Registry) All() iter.Seq[Member] {
	return func(yield func(Member) bool) {
		for m := r.FirstAllocator(); m != nil; m = m.link().NextAllocator() {
			if !yield(m) {
				return
			}
		}
	}
}

// Len returns the number of registered allocators.
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.count
}

// Refs returns the number of outstanding guards, the process reference
// included.
func (r *Registry) Refs() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return int(r.refs)
}

// Alive reports whether the registry has not been torn down.
func (r *Registry) Alive() bool {
	return !r.dead.Load()
}

// teardown closes the members of a registry whose last guard went away.
func (r *Registry) teardown() {
	r.lock.Lock()
	if r.refs != 0 || r.dead.Load() {
		r.lock.Unlock()
		return
	}
	r.dead.Store(true)
	members := r.snapshot()
	r.lock.Unlock()

	instance.CompareAndSwap(r, nil)

	for _, m := range members {
		if c, ok := m.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("chain: close on teardown failed", "allocator", m.Location().String(), "err", err)
			}
		}
	}

	r.lock.Lock()
	for l := r.first; l != nil; l = l.next.Load() {
		l.reg.CompareAndSwap(r, nil)
	}
	r.first = nil
	r.count = 0
	r.lock.Unlock()

	logger.Debug("chain: registry torn down", "allocators", len(members))
}
