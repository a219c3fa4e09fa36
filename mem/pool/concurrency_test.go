package pool

import (
	"math/rand"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveBlock struct {
	ptr  unsafe.Pointer
	size int
	seed byte
}

// Test_Pool_ConcurrentCanaries runs 8 goroutines of interleaved Alloc/Free
// with random sizes, writing a byte pattern into every block and checking it
// before the block is freed.
func Test_Pool_ConcurrentCanaries(t *testing.T) {
	const workers = 8
	ops := 100000
	if testing.Short() {
		ops = 10000
	}

	p := newTestPool(t)
	p.Purge()
	start := p.Size()

	var wg sync.WaitGroup
	errs := make(chan string, workers)
	for w := range workers {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w) + 1))
			live := make([]liveBlock, 0, 256)

			release := func(i int) bool {
				blk := live[i]
				if !intact(blk.ptr, blk.size, blk.seed) {
					errs <- "canary corrupted"
					return false
				}
				p.Free(blk.ptr)
				live[i] = live[len(live)-1]
				live = live[:len(live)-1]
				return true
			}

			for op := range ops {
				if len(live) > 0 && (len(live) == cap(live) || rng.Intn(2) == 0) {
					if !release(rng.Intn(len(live))) {
						return
					}
					continue
				}
				size := 1 + rng.Intn(2048)
				ptr := p.Alloc(size)
				if ptr == nil {
					errs <- "allocation failed"
					return
				}
				seed := byte(w*31 + op)
				fill(ptr, size, seed)
				live = append(live, liveBlock{ptr: ptr, size: size, seed: seed})
			}
			for len(live) > 0 {
				if !release(len(live) - 1) {
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}

	checkInvariants(t, p)
	for _, st := range p.Status() {
		require.Zero(t, st.UsedChunks, "chunk size %d", st.ChunkSize)
	}
	p.Purge()
	assert.Equal(t, start, p.Size())
	s := p.Stats()
	assert.Equal(t, s.Allocs, s.Frees)
	assert.Zero(t, s.Overflows)
}
