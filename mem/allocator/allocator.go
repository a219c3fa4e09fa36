// Package allocator exposes the default allocator of each memory location.
//
// The heap and virtual allocators are created together on first use and are
// never destroyed. Both join the process-wide registry, and rejoin a fresh
// registry after the previous one was torn down. The pool allocator is the
// default pool itself.
package allocator

import (
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/memkit/mem/chain"
	"github.com/joshuapare/memkit/mem/osmem"
	"github.com/joshuapare/memkit/mem/pool"
	"github.com/joshuapare/memkit/mem/spin"
)

type (
	Allocator = chain.Allocator
	Location  = chain.Location
)

const (
	LocationCustom  = chain.LocationCustom
	LocationHeap    = chain.LocationHeap
	LocationVirtual = chain.LocationVirtual
	LocationPool    = chain.LocationPool
)

// Reallocator is implemented by allocators that can resize a block in place
// or move it themselves.
type Reallocator interface {
	Realloc(p unsafe.Pointer, size int) unsafe.Pointer
}

var (
	initLock spin.Lock
	ready    atomic.Bool
	heap     *heapAllocator
	virtual  *virtualAllocator

	custom atomic.Pointer[customSlot]
)

type customSlot struct{ a Allocator }

func singletons() {
	if ready.Load() && heap.Registered() && virtual.Registered() {
		return
	}
	initLock.Lock()
	defer initLock.Unlock()
	if !ready.Load() {
		heap = &heapAllocator{}
		virtual = &virtualAllocator{}
		ready.Store(true)
	}
	if !heap.Registered() {
		chain.Join(heap)
	}
	if !virtual.Registered() {
		chain.Join(virtual)
	}
}

// Default returns the allocator for loc. LocationCustom returns the allocator
// installed with SetCustom, or the heap allocator when there is none; unknown
// locations return the heap allocator.
func Default(loc Location) Allocator {
	singletons()
	switch loc {
	case LocationHeap:
		return heap
	case LocationVirtual:
		return virtual
	case LocationPool:
		return pool.Default()
	case LocationCustom:
		if s := custom.Load(); s != nil {
			return s.a
		}
	}
	return heap
}

// SetCustom installs a as the LocationCustom allocator and returns the
// previous one. A nil a uninstalls it.
func SetCustom(a Allocator) Allocator {
	var next *customSlot
	if a != nil {
		next = &customSlot{a: a}
	}
	prev := custom.Swap(next)
	if prev == nil {
		return nil
	}
	return prev.a
}

// Realloc resizes p, which a allocated with oldSize bytes. Allocators that
// implement Reallocator resize themselves; otherwise a new block is allocated,
// min(oldSize, size) bytes are copied and p is released. On failure nil is
// returned and p stays valid.
func Realloc(a Allocator, p unsafe.Pointer, oldSize, size int) unsafe.Pointer {
	if r, ok := a.(Reallocator); ok {
		return r.Realloc(p, size)
	}
	if p == nil {
		return a.Alloc(size)
	}
	if size <= 0 {
		a.Dealloc(p)
		return nil
	}
	q := a.Alloc(size)
	if q == nil {
		return nil
	}
	osmem.Copy(q, p, min(oldSize, size))
	a.Dealloc(p)
	return q
}
