package pool

import (
	"fmt"
	"math/rand"
	"testing"
	"unsafe"

	"github.com/joshuapare/memkit/mem/osmem"
)

func BenchmarkPool_AllocFree(b *testing.B) {
	for _, size := range []int{16, 24, 256, 4000, 30000} {
		b.Run(fmt.Sprintf("%dB", size), func(b *testing.B) {
			p := newTestPool(b)
			b.ReportAllocs()
			for b.Loop() {
				p.Free(p.Alloc(size))
			}
		})
	}
}

func BenchmarkPool_Large(b *testing.B) {
	p := newTestPool(b)
	b.ReportAllocs()
	for b.Loop() {
		p.Free(p.Alloc(64 << 10))
	}
}

func BenchmarkPool_MixedParallel(b *testing.B) {
	p := newTestPool(b)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(rand.Int63()))
		var ring [64]unsafe.Pointer
		i := 0
		for pb.Next() {
			slot := i & (len(ring) - 1)
			p.Free(ring[slot])
			ring[slot] = p.Alloc(1 + rng.Intn(2048))
			i++
		}
		for _, ptr := range ring {
			p.Free(ptr)
		}
	})
}

// BenchmarkHeap_AllocFree is the baseline the pool is measured against.
func BenchmarkHeap_AllocFree(b *testing.B) {
	b.ReportAllocs()
	for b.Loop() {
		osmem.HeapFree(osmem.HeapAlloc(256))
	}
}
