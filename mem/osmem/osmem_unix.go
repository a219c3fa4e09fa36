//go:build linux || darwin

package osmem

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

func sysPageSize() int {
	return unix.Getpagesize()
}

// sysReserve maps an inaccessible range with no swap reservation. addr is a
// hint; the caller checks whether it was honoured.
func sysReserve(addr unsafe.Pointer, length uintptr) (unsafe.Pointer, error) {
	return unix.MmapPtr(-1, 0, addr, length,
		unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE)
}

func sysRelease(p unsafe.Pointer, length uintptr) error {
	return unix.MunmapPtr(p, length)
}

func sysCommit(p unsafe.Pointer, length uintptr) error {
	return unix.Mprotect(unsafe.Slice((*byte)(p), length), unix.PROT_READ|unix.PROT_WRITE)
}

// sysDecommit hands the pages back to the kernel, then revokes access so a
// stray write faults instead of silently re-populating the page.
func sysDecommit(p unsafe.Pointer, length uintptr) error {
	b := unsafe.Slice((*byte)(p), length)
	if err := unix.Madvise(b, unix.MADV_DONTNEED); err != nil {
		return err
	}
	return unix.Mprotect(b, unix.PROT_NONE)
}

func sysMap(length uintptr) (unsafe.Pointer, error) {
	return unix.MmapPtr(-1, 0, nil, length,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func sysUnmap(p unsafe.Pointer, length uintptr) error {
	return unix.MunmapPtr(p, length)
}
