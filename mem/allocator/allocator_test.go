package allocator

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/mem/chain"
	"github.com/joshuapare/memkit/mem/osmem"
	"github.com/joshuapare/memkit/mem/pool"
)

// plainAllocator has no Realloc, so Realloc falls back to copy.
type plainAllocator struct {
	allocs, frees int
}

func (a *plainAllocator) Alloc(size int) unsafe.Pointer {
	a.allocs++
	return osmem.HeapAlloc(size)
}

func (a *plainAllocator) Dealloc(p unsafe.Pointer) {
	if p != nil {
		a.frees++
	}
	osmem.HeapFree(p)
}

func (*plainAllocator) Location() Location { return LocationCustom }

func writeRead(t *testing.T, a Allocator, size int) {
	t.Helper()
	p := a.Alloc(size)
	require.NotNil(t, p)
	b := osmem.Bytes(p, size)
	for i := range b {
		b[i] = byte(i * 7)
	}
	for i := range b {
		require.Equal(t, byte(i*7), b[i])
	}
	a.Dealloc(p)
}

func Test_Default_Locations(t *testing.T) {
	tests := []struct {
		loc  Location
		want Location
	}{
		{LocationHeap, LocationHeap},
		{LocationVirtual, LocationVirtual},
		{LocationPool, LocationPool},
		{LocationCustom, LocationHeap},
		{Location(42), LocationHeap},
	}
	for _, tt := range tests {
		t.Run(tt.loc.String(), func(t *testing.T) {
			a := Default(tt.loc)
			require.NotNil(t, a)
			assert.Equal(t, tt.want, a.Location())
			assert.Same(t, a, Default(tt.loc))
			writeRead(t, a, 300)
		})
	}
}

func Test_Default_PoolIsDefaultPool(t *testing.T) {
	assert.Same(t, pool.Default(), Default(LocationPool))
}

func Test_Default_SingletonsAreRegistered(t *testing.T) {
	Default(LocationHeap)
	seen := map[Location]bool{}
	for m := range chain.Instance().All() {
		seen[m.Location()] = true
	}
	assert.True(t, seen[LocationHeap])
	assert.True(t, seen[LocationVirtual])
}

func Test_Default_RejoinAfterTeardown(t *testing.T) {
	g := chain.Acquire()
	old := g.Registry()
	Default(LocationHeap)
	require.True(t, heap.Registered())

	g.Release()
	require.True(t, old.Alive())
	require.True(t, heap.Registered())

	chain.Shutdown()
	require.False(t, old.Alive())
	assert.False(t, heap.Registered())

	Default(LocationVirtual)
	assert.True(t, heap.Registered())
	assert.True(t, virtual.Registered())
	assert.Same(t, chain.Instance(), heap.Registry())
}

func Test_SetCustom(t *testing.T) {
	custom := &plainAllocator{}
	assert.Nil(t, SetCustom(custom))
	t.Cleanup(func() { SetCustom(nil) })

	assert.Same(t, custom, Default(LocationCustom))
	writeRead(t, Default(LocationCustom), 64)
	assert.Equal(t, 1, custom.allocs)

	assert.Same(t, custom, SetCustom(nil))
	assert.Equal(t, LocationHeap, Default(LocationCustom).Location())
}

func Test_Realloc(t *testing.T) {
	for _, loc := range []Location{LocationHeap, LocationVirtual, LocationPool} {
		t.Run(loc.String(), func(t *testing.T) {
			a := Default(loc)
			p := Realloc(a, nil, 0, 100)
			require.NotNil(t, p)
			b := osmem.Bytes(p, 100)
			for i := range b {
				b[i] = byte(i)
			}
			q := Realloc(a, p, 100, 50000)
			require.NotNil(t, q)
			for i, v := range osmem.Bytes(q, 100) {
				require.Equal(t, byte(i), v)
			}
			assert.Nil(t, Realloc(a, q, 50000, 0))
		})
	}
}

func Test_Realloc_Fallback(t *testing.T) {
	a := &plainAllocator{}
	p := Realloc(a, nil, 0, 16)
	require.NotNil(t, p)
	copy(osmem.Bytes(p, 16), "0123456789abcdef")

	q := Realloc(a, p, 16, 8)
	require.NotNil(t, q)
	assert.Equal(t, "01234567", string(osmem.Bytes(q, 8)))

	assert.Nil(t, Realloc(a, q, 8, 0))
	assert.Equal(t, 2, a.allocs)
	assert.Equal(t, 2, a.frees)
}

func Test_VirtualDescribeCountsBlocks(t *testing.T) {
	a := Default(LocationVirtual)
	v := a.(*virtualAllocator)
	before := v.live.Load()

	p := a.Alloc(10)
	require.NotNil(t, p)
	assert.Equal(t, before+1, v.live.Load())
	assert.Contains(t, v.Describe(), "blocks live")
	a.Dealloc(p)
	assert.Equal(t, before, v.live.Load())
}
