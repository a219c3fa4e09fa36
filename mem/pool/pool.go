// Package pool implements the bucketed pool allocator.
//
// A Pool reserves one contiguous range of address space and splits it into
// equal regions, one per size class ("bucket"). Each bucket commits its
// region a page at a time and hands out fixed-size chunks from intrusive free
// lists. Requests at or above the large threshold, and requests whose bucket
// ran out of region, are mapped directly with osmem.VirtualAlloc.
//
// The owner of every block is derived from its address: chunks inside the
// reservation belong to the bucket whose region contains them; anything else
// is a large block. There is no per-chunk header.
//
// Typical use:
//
//	p := pool.Default()
//	ptr := p.Alloc(24)
//	if ptr == nil {
//	    chain.Cleanup() // purge everything, then retry
//	    ptr = p.Alloc(24)
//	}
//	defer p.Free(ptr)
//
// All methods are safe for concurrent use, except Close, which must not race
// with other calls on the same pool.
package pool

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/memkit/internal/bounds"
	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/mem/chain"
	"github.com/joshuapare/memkit/mem/osmem"
	"github.com/joshuapare/memkit/mem/spin"
)

// BucketStatus is a point-in-time view of one bucket.
type BucketStatus struct {
	ChunkSize   int `json:"chunk_size"`
	TotalChunks int `json:"total_chunks"`
	UsedChunks  int `json:"used_chunks"`
}

// Pool is a size-classed allocator over reserved virtual memory.
type Pool struct {
	chain.Link

	classes   *classTable
	threshold int

	base       unsafe.Pointer // reservation, nil for a bucketless pool
	regionSize uintptr
	limit      uintptr // base + regionSize*len(buckets)
	buckets    []bucket

	committed  atomic.Int64 // bytes committed by buckets
	largeBytes atomic.Int64 // bytes requested by live large blocks
	closed     atomic.Bool

	largeAllocs      atomic.Uint64
	largeFrees       atomic.Uint64
	overflows        atomic.Uint64
	pagesCommitted   atomic.Uint64
	pagesDecommitted atomic.Uint64
}

// New builds a pool from cfg and joins it to cfg.Registry.
func New(cfg Config) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	classes, err := newClassTable(cfg.Classes)
	if err != nil {
		return nil, err
	}
	p := &Pool{
		classes:   classes,
		threshold: classes.threshold(),
	}

	if cfg.RegionSize > 0 {
		n := classes.NumClasses()
		region, ok := bounds.AlignUp(cfg.RegionSize, osmem.PageSize())
		total, ok2 := bounds.Mul(region, n)
		if !ok || !ok2 {
			return nil, fmt.Errorf("%w: %d buckets of %d bytes overflow the address space", ErrBadConfig, n, cfg.RegionSize)
		}
		base, err := osmem.Reserve(nil, total)
		if err != nil {
			return nil, fmt.Errorf("pool: reserve %d buckets: %w", n, err)
		}
		p.base = base
		p.regionSize = uintptr(region)
		p.limit = uintptr(base) + uintptr(total)
		p.buckets = make([]bucket, n)
		for i := range p.buckets {
			size := classes.sizes[i]
			p.buckets[i].init(unsafe.Add(base, uintptr(i)*p.regionSize), p.regionSize, size, cfg.PageBytesFor(size))
		}
	}

	if cfg.Registry != nil {
		cfg.Registry.Join(p)
	} else {
		chain.Join(p)
	}

	logger.Debug("pool: created",
		"classes", classes.String(),
		"buckets", len(p.buckets),
		"region", p.regionSize,
		"threshold", p.threshold)
	return p, nil
}

// bucketOf returns the bucket owning ptr and its offset from the bucket base.
func (p *Pool) bucketOf(ptr unsafe.Pointer) (*bucket, uintptr, bool) {
	addr := uintptr(ptr)
	if p.base == nil || addr < uintptr(p.base) || addr >= p.limit {
		return nil, 0, false
	}
	rel := addr - uintptr(p.base)
	b := &p.buckets[rel/p.regionSize]
	return b, rel % p.regionSize, true
}

// Alloc returns at least size writable bytes, 16-byte aligned, or nil if size
// is not positive or memory is exhausted.
func (p *Pool) Alloc(size int) unsafe.Pointer {
	if size <= 0 || p.closed.Load() {
		return nil
	}
	if size < p.threshold && len(p.buckets) > 0 {
		b := &p.buckets[p.classes.classOf(size)]
		if ptr := b.alloc(p); ptr != nil {
			return ptr
		}
		p.overflows.Add(1)
		if logPool {
			logger.Debug("pool: bucket exhausted, overflowing to virtual memory", "size", size, "chunk", b.chunkSize)
		}
	}
	return p.allocLarge(size)
}

func (p *Pool) allocLarge(size int) unsafe.Pointer {
	ptr, err := osmem.VirtualAlloc(size)
	if err != nil {
		logger.Warn("pool: large allocation failed", "size", size, "err", err)
		return nil
	}
	p.largeBytes.Add(int64(size))
	p.largeAllocs.Add(1)
	return ptr
}

func (p *Pool) freeLarge(ptr unsafe.Pointer) {
	p.largeBytes.Add(-int64(osmem.VirtualSize(ptr)))
	p.largeFrees.Add(1)
	osmem.VirtualFree(ptr)
}

// Free releases a block from Alloc or Realloc. nil is a no-op. Chunks freed
// after Close are ignored.
func (p *Pool) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	if b, off, ok := p.bucketOf(ptr); ok {
		if p.closed.Load() {
			return
		}
		b.free(off)
		return
	}
	p.freeLarge(ptr)
}

// Dealloc is Free under the chain.Allocator name.
func (p *Pool) Dealloc(ptr unsafe.Pointer) { p.Free(ptr) }

// Realloc resizes ptr to size bytes, preserving min(old, size) bytes. A nil
// ptr allocates; a size of zero frees and returns nil. The same pointer is
// returned while its chunk still holds size bytes. On failure nil is returned
// and ptr stays valid.
func (p *Pool) Realloc(ptr unsafe.Pointer, size int) unsafe.Pointer {
	if ptr == nil {
		return p.Alloc(size)
	}
	if size <= 0 {
		p.Free(ptr)
		return nil
	}

	if b, off, ok := p.bucketOf(ptr); ok {
		if p.closed.Load() {
			return nil
		}
		if size <= int(b.chunkSize) {
			return ptr
		}
		q := p.Alloc(size)
		if q == nil {
			return nil
		}
		osmem.Copy(q, ptr, int(b.chunkSize))
		b.free(off)
		return q
	}

	old := osmem.VirtualSize(ptr)
	if size < p.threshold && len(p.buckets) > 0 && !p.closed.Load() {
		q := p.Alloc(size)
		if q == nil {
			return nil
		}
		osmem.Copy(q, ptr, min(old, size))
		p.freeLarge(ptr)
		return q
	}
	q, err := osmem.VirtualRealloc(ptr, size)
	if err != nil {
		logger.Warn("pool: large reallocation failed", "size", size, "err", err)
		return nil
	}
	p.largeBytes.Add(int64(size - old))
	return q
}

// Purge decommits every bucket page without live chunks and returns the
// number of bytes released. Live allocations are never affected.
func (p *Pool) Purge() int64 {
	if p.closed.Load() {
		return 0
	}
	var released int64
	for i := range p.buckets {
		released += p.buckets[i].purge(p)
	}
	if released > 0 {
		logger.Debug("pool: purged", "bytes", released)
	}
	return released
}

// Size returns bytes committed by buckets plus bytes held by live large
// blocks.
func (p *Pool) Size() int64 {
	return p.committed.Load() + p.largeBytes.Load()
}

// NumberOfBuckets returns the number of size classes served from buckets.
func (p *Pool) NumberOfBuckets() int {
	return len(p.buckets)
}

// QueryAllocationStatus fills buf with one record per bucket, smallest chunk
// size first, and returns the number of records written.
func (p *Pool) QueryAllocationStatus(buf []BucketStatus) int {
	n := min(len(buf), len(p.buckets))
	for i := range n {
		buf[i] = p.buckets[i].status()
	}
	return n
}

// Status returns the status of every bucket.
func (p *Pool) Status() []BucketStatus {
	buf := make([]BucketStatus, len(p.buckets))
	p.QueryAllocationStatus(buf)
	return buf
}

// Threshold returns the size at and above which requests bypass the buckets.
func (p *Pool) Threshold() int { return p.threshold }

// Location implements chain.Allocator.
func (p *Pool) Location() chain.Location { return chain.LocationPool }

// Describe implements chain.Member.
func (p *Pool) Describe() string {
	return fmt.Sprintf("pool %s: %d buckets, %d bytes committed, %d bytes large",
		p.classes, len(p.buckets), p.committed.Load(), p.largeBytes.Load())
}

// Close leaves the registry and releases the reservation. Chunks handed out
// by the pool become invalid; large blocks stay valid until freed.
func (p *Pool) Close() error {
	if p.closed.Swap(true) {
		return ErrClosed
	}
	chain.Leave(p)
	defaultPool.CompareAndSwap(p, nil)

	var err error
	if p.base != nil {
		err = osmem.Release(p.base)
	}
	p.committed.Store(0)
	logger.Debug("pool: closed", "buckets", len(p.buckets))
	return err
}

// ============================================================================
// Default pool
// ============================================================================

var (
	defaultLock spin.Lock
	defaultPool atomic.Pointer[Pool]
)

// Default returns the process-wide pool, creating it on first use. If the
// address space reservation fails the default pool is bucketless.
func Default() *Pool {
	if p := defaultPool.Load(); p != nil {
		return p
	}
	defaultLock.Lock()
	defer defaultLock.Unlock()
	if p := defaultPool.Load(); p != nil {
		return p
	}

	cfg := DefaultConfig()
	p, err := New(cfg)
	if err != nil {
		logger.Warn("pool: default reservation failed, serving from virtual memory", "err", err)
		cfg.RegionSize = 0
		if p, err = New(cfg); err != nil {
			panic(fmt.Sprintf("pool: default configuration rejected: %v", err))
		}
	}
	defaultPool.Store(p)
	return p
}

func roundToPage(n int) int {
	ps := osmem.PageSize()
	return (n + ps - 1) &^ (ps - 1)
}
