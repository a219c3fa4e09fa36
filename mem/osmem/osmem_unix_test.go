//go:build linux || darwin

package osmem

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func Test_Page_ReserveHintOccupied(t *testing.T) {
	ps := PageSize()
	taken, err := Reserve(nil, 4*ps)
	require.NoError(t, err)
	defer func() { require.NoError(t, Release(taken)) }()

	p, err := Reserve(taken, 4*ps)
	require.ErrorIs(t, err, ErrAddressInUse)
	require.Nil(t, p)
}

func Test_Page_LargeReservationIsCheap(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large reservation in short mode")
	}
	if unsafe.Sizeof(uintptr(0)) < 8 {
		t.Skip("needs a 64-bit address space")
	}
	// Reserving address space must not require physical memory.
	const size = 4 << 30
	p, err := Reserve(nil, size)
	require.NoError(t, err)
	require.NoError(t, Commit(p, PageSize()))
	*(*uint64)(p) = 0xdeadbeef
	require.Equal(t, uint64(0xdeadbeef), *(*uint64)(p))
	require.NoError(t, Release(p))
}
