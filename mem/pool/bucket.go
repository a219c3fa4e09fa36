package pool

import (
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/joshuapare/memkit/internal/bounds"
	"github.com/joshuapare/memkit/internal/debug"
	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/mem/osmem"
	"github.com/joshuapare/memkit/mem/spin"
)

// noChunk terminates a page free list.
const noChunk = ^uintptr(0)

// noPage terminates the partial list.
const noPage = int32(-1)

// page is the bookkeeping of one bucket page. It lives on the Go heap; the
// free list itself is threaded through the free chunks as offsets from the
// bucket base.
type page struct {
	free      uintptr // offset of the first free chunk, or noChunk
	carved    int32   // chunks handed out at least once since commit
	used      int32   // live chunks
	committed bool

	// Links in the partial list (committed pages with a free chunk).
	prev, next int32
	inPartial  bool
}

// bucket serves one size class from a fixed slice of the pool reservation.
//
// Invariants, under lock:
//   - a page is in the partial list iff it is committed and used < perPage
//   - a page index in spare is never committed
//   - totalChunks == perPage * committed pages
type bucket struct {
	lock spin.Lock

	chunkSize uintptr
	pageBytes uintptr
	perPage   int32 // chunks per page
	capacity  int   // pages the region can hold
	base      unsafe.Pointer

	pages   []page  // every page touched so far, by index
	partial int32   // head of the partial list
	spare   []int32 // decommitted pages, reused before fresh ones

	totalChunks int64
	usedChunks  int64
	allocs      uint64
	frees       uint64

	_ cpu.CacheLinePad
}

func (b *bucket) init(base unsafe.Pointer, region uintptr, chunkSize, pageBytes int) {
	b.base = base
	b.chunkSize = uintptr(chunkSize)
	b.pageBytes = uintptr(pageBytes)
	b.perPage = int32(pageBytes / chunkSize)
	b.capacity = int(region / b.pageBytes)
	b.partial = noPage
}

func (b *bucket) pageAddr(pi int32) unsafe.Pointer {
	return unsafe.Add(b.base, uintptr(pi)*b.pageBytes)
}

// nextOf reads the free-list link stored in a free chunk.
func (b *bucket) nextOf(off uintptr) *uintptr {
	return (*uintptr)(unsafe.Add(b.base, off))
}

// ============================================================================
// Partial list
// ============================================================================

func (b *bucket) linkPartial(pi int32) {
	pg := &b.pages[pi]
	pg.prev = noPage
	pg.next = b.partial
	if b.partial != noPage {
		b.pages[b.partial].prev = pi
	}
	b.partial = pi
	pg.inPartial = true
}

func (b *bucket) unlinkPartial(pi int32) {
	pg := &b.pages[pi]
	if pg.prev != noPage {
		b.pages[pg.prev].next = pg.next
	} else {
		b.partial = pg.next
	}
	if pg.next != noPage {
		b.pages[pg.next].prev = pg.prev
	}
	pg.prev, pg.next = noPage, noPage
	pg.inPartial = false
}

// ============================================================================
// Alloc / free
// ============================================================================

// alloc pops a chunk, committing a page if none is free. It returns nil when
// the region is exhausted or the commit fails.
func (b *bucket) alloc(p *Pool) unsafe.Pointer {
	b.lock.Lock()
	pi := b.partial
	if pi == noPage {
		if pi = b.grow(p); pi == noPage {
			b.lock.Unlock()
			return nil
		}
	}

	pg := &b.pages[pi]
	var off uintptr
	if pg.free != noChunk {
		off = pg.free
		pg.free = *b.nextOf(off)
	} else {
		off = uintptr(pi)*b.pageBytes + uintptr(pg.carved)*b.chunkSize
		pg.carved++
	}
	pg.used++
	if pg.used == b.perPage {
		b.unlinkPartial(pi)
	}
	b.usedChunks++
	b.allocs++
	b.lock.Unlock()

	return unsafe.Add(b.base, off)
}

// free pushes the chunk at off back onto its page.
func (b *bucket) free(off uintptr) {
	if debug.Enabled {
		inPage := off % b.pageBytes
		debug.Assert(bounds.Within(b.capacity*int(b.pageBytes), int(off), int(b.chunkSize)) &&
			inPage%b.chunkSize == 0 && inPage/b.chunkSize < uintptr(b.perPage),
			"pool: free of %#x is not a chunk of the %d-byte bucket", off, b.chunkSize)
	}
	pi := int32(off / b.pageBytes)

	b.lock.Lock()
	pg := &b.pages[pi]
	*b.nextOf(off) = pg.free
	pg.free = off
	if pg.used == b.perPage {
		b.linkPartial(pi)
	}
	pg.used--
	b.usedChunks--
	b.frees++
	b.lock.Unlock()
}

// grow commits a spare or fresh page and puts it on the partial list.
// Caller holds b.lock.
func (b *bucket) grow(p *Pool) int32 {
	var pi int32
	if n := len(b.spare); n > 0 {
		pi = b.spare[n-1]
		b.spare = b.spare[:n-1]
	} else if len(b.pages) < b.capacity {
		pi = int32(len(b.pages))
		b.pages = append(b.pages, page{})
	} else {
		return noPage
	}

	if err := osmem.Commit(b.pageAddr(pi), int(b.pageBytes)); err != nil {
		b.spare = append(b.spare, pi)
		logger.Warn("pool: page commit failed", "chunk", b.chunkSize, "page", pi, "err", err)
		return noPage
	}

	b.pages[pi] = page{free: noChunk, committed: true}
	b.linkPartial(pi)
	b.totalChunks += int64(b.perPage)
	p.committed.Add(int64(b.pageBytes))
	p.pagesCommitted.Add(1)

	if logPool {
		logger.Debug("pool: page committed", "chunk", b.chunkSize, "page", pi, "bytes", b.pageBytes)
	}
	return pi
}

// purge decommits every committed page without live chunks and returns the
// bytes released.
func (b *bucket) purge(p *Pool) int64 {
	b.lock.Lock()
	defer b.lock.Unlock()

	var released int64
	for i := range b.pages {
		pi := int32(i)
		pg := &b.pages[pi]
		if !pg.committed || pg.used != 0 {
			continue
		}
		if err := osmem.Decommit(b.pageAddr(pi), int(b.pageBytes)); err != nil {
			logger.Warn("pool: page decommit failed", "chunk", b.chunkSize, "page", pi, "err", err)
			continue
		}
		b.unlinkPartial(pi)
		*pg = page{free: noChunk, prev: noPage, next: noPage}
		b.spare = append(b.spare, pi)
		b.totalChunks -= int64(b.perPage)
		released += int64(b.pageBytes)
		p.pagesDecommitted.Add(1)
	}
	if released > 0 {
		p.committed.Add(-released)
		if logPool {
			logger.Debug("pool: bucket purged", "chunk", b.chunkSize, "bytes", released)
		}
	}
	return released
}

func (b *bucket) status() BucketStatus {
	b.lock.Lock()
	defer b.lock.Unlock()
	return BucketStatus{
		ChunkSize:   int(b.chunkSize),
		TotalChunks: int(b.totalChunks),
		UsedChunks:  int(b.usedChunks),
	}
}
