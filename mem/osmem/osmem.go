// Package osmem is the only place memkit talks to the operating system for
// memory.
//
// It offers three families of primitives:
//
//   - Heap passthrough (HeapAlloc, HeapRealloc, HeapFree) delegating to the Go
//     runtime heap, the platform allocator of a Go process.
//   - Virtual allocations (VirtualAlloc, VirtualRealloc, VirtualFree,
//     VirtualSize) that reserve and commit a private mapping in one step and
//     remember the requested size.
//   - Page primitives (PageSize, Reserve, Release, Commit, Decommit) that
//     separate reserving address space from committing physical backing.
//
// Every pointer-returning function returns nil on failure. A nil pointer
// always means "allocation failed", never a zero-sized success. Data in a
// decommitted or released range is lost.
package osmem

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/joshuapare/memkit/internal/bounds"
	"github.com/joshuapare/memkit/mem/spin"
)

var (
	// ErrInvalidSize indicates a zero, negative or overflowing size.
	ErrInvalidSize = errors.New("osmem: invalid size")

	// ErrUnaligned indicates an address that is not a multiple of PageSize.
	ErrUnaligned = errors.New("osmem: address not page aligned")

	// ErrAddressInUse indicates the OS did not honour a requested reservation address.
	ErrAddressInUse = errors.New("osmem: requested address unavailable")

	// ErrNotReserved indicates Release was called with an address Reserve never returned.
	ErrNotReserved = errors.New("osmem: address was not reserved")
)

// pageSize is read once; it is constant for the life of the process.
var pageSize = uintptr(sysPageSize())

// PageSize returns the platform page size in bytes.
func PageSize() int { return int(pageSize) }

// Bytes returns a byte slice aliasing n bytes at p. The slice is only valid
// while the underlying block is.
func Bytes(p unsafe.Pointer, n int) []byte {
	if p == nil || n <= 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}

// Copy copies n bytes from src to dst. The ranges must not overlap.
func Copy(dst, src unsafe.Pointer, n int) {
	if n <= 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}

func roundUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

func isAligned(p unsafe.Pointer) bool {
	return uintptr(p)&(pageSize-1) == 0
}

// ============================================================================
// Page primitives
// ============================================================================

var (
	reserveLock spin.Lock
	reserved    = make(map[uintptr]uintptr) // base -> reserved length
)

// Reserve reserves size bytes of address space without committing any
// physical memory. Pages in the range are inaccessible until committed.
// addr must be page aligned, or nil to let the OS choose. size is rounded up
// to PageSize.
func Reserve(addr unsafe.Pointer, size int) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if addr != nil && !isAligned(addr) {
		return nil, ErrUnaligned
	}
	n, ok := bounds.AlignUp(size, int(pageSize))
	if !ok {
		return nil, ErrInvalidSize
	}
	length := uintptr(n)

	p, err := sysReserve(addr, length)
	if err != nil {
		return nil, fmt.Errorf("osmem: reserve %d bytes: %w", length, err)
	}
	if addr != nil && p != addr {
		_ = sysRelease(p, length)
		return nil, ErrAddressInUse
	}

	reserveLock.Lock()
	reserved[uintptr(p)] = length
	reserveLock.Unlock()
	return p, nil
}

// Release returns a whole reservation made by Reserve to the OS. Committed
// pages inside it are discarded.
func Release(p unsafe.Pointer) error {
	if p == nil {
		return nil
	}
	reserveLock.Lock()
	length, ok := reserved[uintptr(p)]
	if ok {
		delete(reserved, uintptr(p))
	}
	reserveLock.Unlock()
	if !ok {
		return ErrNotReserved
	}
	if err := sysRelease(p, length); err != nil {
		return fmt.Errorf("osmem: release %d bytes: %w", length, err)
	}
	return nil
}

// Commit backs the page-aligned range [p, p+size) with readable and writable
// memory. size is rounded up to PageSize.
func Commit(p unsafe.Pointer, size int) error {
	if size <= 0 {
		return ErrInvalidSize
	}
	if p == nil || !isAligned(p) {
		return ErrUnaligned
	}
	if err := sysCommit(p, roundUp(uintptr(size), pageSize)); err != nil {
		return fmt.Errorf("osmem: commit %d bytes: %w", size, err)
	}
	return nil
}

// Decommit drops the physical backing of [p, p+size) and makes the range
// inaccessible again. The address space stays reserved.
func Decommit(p unsafe.Pointer, size int) error {
	if size <= 0 {
		return ErrInvalidSize
	}
	if p == nil || !isAligned(p) {
		return ErrUnaligned
	}
	if err := sysDecommit(p, roundUp(uintptr(size), pageSize)); err != nil {
		return fmt.Errorf("osmem: decommit %d bytes: %w", size, err)
	}
	return nil
}

// ============================================================================
// Virtual allocations
// ============================================================================

// vheader sits at the start of every virtual mapping.
type vheader struct {
	mapped uintptr // bytes mapped, header included
	size   uintptr // bytes requested by the caller
}

// vheaderSize keeps the returned pointer 16-byte aligned.
const vheaderSize = 16

func headerOf(p unsafe.Pointer) *vheader {
	return (*vheader)(unsafe.Add(p, -vheaderSize))
}

// VirtualAlloc maps size bytes of private read/write memory.
func VirtualAlloc(size int) (unsafe.Pointer, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	need, ok := bounds.Add(size, vheaderSize)
	if !ok {
		return nil, ErrInvalidSize
	}
	n, ok := bounds.AlignUp(need, int(pageSize))
	if !ok {
		return nil, ErrInvalidSize
	}
	mapped := uintptr(n)
	base, err := sysMap(mapped)
	if err != nil {
		return nil, fmt.Errorf("osmem: map %d bytes: %w", mapped, err)
	}
	h := (*vheader)(base)
	h.mapped = mapped
	h.size = uintptr(size)
	return unsafe.Add(base, vheaderSize), nil
}

// VirtualRealloc resizes a block returned by VirtualAlloc, preserving
// min(old, new) bytes. A nil p behaves like VirtualAlloc; size 0 frees p and
// returns nil. On failure p is left untouched.
func VirtualRealloc(p unsafe.Pointer, size int) (unsafe.Pointer, error) {
	if p == nil {
		return VirtualAlloc(size)
	}
	if size <= 0 {
		VirtualFree(p)
		return nil, nil
	}
	h := headerOf(p)
	if uintptr(size)+vheaderSize <= h.mapped {
		h.size = uintptr(size)
		return p, nil
	}
	q, err := VirtualAlloc(size)
	if err != nil {
		return nil, err
	}
	Copy(q, p, int(min(h.size, uintptr(size))))
	VirtualFree(p)
	return q, nil
}

// VirtualFree unmaps a block returned by VirtualAlloc. nil is a no-op.
func VirtualFree(p unsafe.Pointer) {
	if p == nil {
		return
	}
	base := unsafe.Add(p, -vheaderSize)
	_ = sysUnmap(base, (*vheader)(base).mapped)
}

// VirtualSize returns the size most recently requested for p.
func VirtualSize(p unsafe.Pointer) int {
	if p == nil {
		return 0
	}
	return int(headerOf(p).size)
}

// ============================================================================
// Heap passthrough
// ============================================================================

// heapWord is the unit of heap passthrough storage. Go heap objects whose size
// is a multiple of 16 are 16-byte aligned, and a 16-byte element keeps small
// blocks out of the runtime's tiny allocator.
type heapWord [2]uint64

const heapWordSize = int(unsafe.Sizeof(heapWord{}))

var (
	heapLock spin.Lock
	heapLive = make(map[uintptr][]heapWord) // pins live blocks for the collector
)

// HeapAlloc returns size bytes from the Go heap, aligned to 16 bytes. The
// block stays alive until HeapFree even if the caller keeps only the raw
// pointer.
func HeapAlloc(size int) unsafe.Pointer {
	if size <= 0 {
		return nil
	}
	n, ok := bounds.AlignUp(size, heapWordSize)
	if !ok {
		return nil
	}
	w := make([]heapWord, n/heapWordSize)
	p := unsafe.Pointer(unsafe.SliceData(w))
	heapLock.Lock()
	heapLive[uintptr(p)] = w
	heapLock.Unlock()
	return p
}

// HeapRealloc resizes a block returned by HeapAlloc, preserving
// min(old, new) bytes. A nil p behaves like HeapAlloc; size 0 frees p and
// returns nil.
func HeapRealloc(p unsafe.Pointer, size int) unsafe.Pointer {
	if p == nil {
		return HeapAlloc(size)
	}
	if size <= 0 {
		HeapFree(p)
		return nil
	}
	heapLock.Lock()
	old := heapLive[uintptr(p)]
	heapLock.Unlock()
	have := len(old) * heapWordSize
	if size <= have {
		return p
	}
	q := HeapAlloc(size)
	if q == nil {
		return nil
	}
	Copy(q, p, have)
	HeapFree(p)
	return q
}

// HeapFree releases a block returned by HeapAlloc. nil is a no-op.
func HeapFree(p unsafe.Pointer) {
	if p == nil {
		return
	}
	heapLock.Lock()
	delete(heapLive, uintptr(p))
	heapLock.Unlock()
}
