package chain

import (
	"fmt"
	"unsafe"
)

// Location identifies where an allocator takes its memory from.
type Location int

const (
	LocationCustom  Location = iota // user-defined allocator
	LocationHeap                    // Go runtime heap
	LocationVirtual                 // OS virtual memory, one mapping per block
	LocationPool                    // bucketed pool
)

func (l Location) String() string {
	switch l {
	case LocationCustom:
		return "custom"
	case LocationHeap:
		return "heap"
	case LocationVirtual:
		return "virtual"
	case LocationPool:
		return "pool"
	}
	return fmt.Sprintf("Location(%d)", int(l))
}

// Allocator is anything that can produce and release raw memory blocks.
//
// Alloc returns nil on failure and never panics for exhaustion. Dealloc
// accepts nil. A block must be released by the allocator that produced it,
// exactly once.
type Allocator interface {
	Alloc(size int) unsafe.Pointer
	Dealloc(p unsafe.Pointer)
	Location() Location
}

// Member is an Allocator that participates in a Registry. Types become
// members by embedding Link, which also supplies no-op Purge and Describe
// methods that members may override.
type Member interface {
	Allocator

	// Purge releases currently unused memory to the OS and returns the
	// number of bytes reclaimed.
	Purge() int64

	// Describe returns a one-line summary for diagnostics.
	Describe() string

	link() *Link
}
