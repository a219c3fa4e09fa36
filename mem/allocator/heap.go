package allocator

import (
	"unsafe"

	"github.com/joshuapare/memkit/mem/chain"
	"github.com/joshuapare/memkit/mem/osmem"
)

// heapAllocator serves from the Go runtime heap.
type heapAllocator struct {
	chain.Link
}

func (*heapAllocator) Alloc(size int) unsafe.Pointer { return osmem.HeapAlloc(size) }
func (*heapAllocator) Dealloc(p unsafe.Pointer)      { osmem.HeapFree(p) }
func (*heapAllocator) Location() Location            { return LocationHeap }
func (*heapAllocator) Describe() string              { return "heap: go runtime" }

func (*heapAllocator) Realloc(p unsafe.Pointer, size int) unsafe.Pointer {
	return osmem.HeapRealloc(p, size)
}
