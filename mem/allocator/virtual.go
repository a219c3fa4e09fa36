package allocator

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/mem/chain"
	"github.com/joshuapare/memkit/mem/osmem"
)

// virtualAllocator maps every block separately.
type virtualAllocator struct {
	chain.Link
	live atomic.Int64 // blocks
}

func (v *virtualAllocator) Alloc(size int) unsafe.Pointer {
	p, err := osmem.VirtualAlloc(size)
	if err != nil {
		logger.Debug("allocator: virtual alloc failed", "size", size, "err", err)
		return nil
	}
	v.live.Add(1)
	return p
}

func (v *virtualAllocator) Dealloc(p unsafe.Pointer) {
	if p == nil {
		return
	}
	osmem.VirtualFree(p)
	v.live.Add(-1)
}

func (v *virtualAllocator) Realloc(p unsafe.Pointer, size int) unsafe.Pointer {
	q, err := osmem.VirtualRealloc(p, size)
	if err != nil {
		logger.Debug("allocator: virtual realloc failed", "size", size, "err", err)
		return nil
	}
	switch {
	case p == nil && q != nil:
		v.live.Add(1)
	case p != nil && q == nil:
		v.live.Add(-1)
	}
	return q
}

func (*virtualAllocator) Location() Location { return LocationVirtual }

func (v *virtualAllocator) Describe() string {
	return fmt.Sprintf("virtual: %d blocks live", v.live.Load())
}
