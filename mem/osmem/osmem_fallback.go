//go:build !linux && !darwin && !windows

package osmem

import (
	"os"
	"unsafe"

	"github.com/joshuapare/memkit/mem/spin"
)

// Without a usable mmap binding, ranges come from the Go heap and are pinned
// here. Commit is a no-op and Decommit only clears the range.

var (
	pinLock spin.Lock
	pinned  = make(map[uintptr][]byte)
)

func sysPageSize() int {
	return os.Getpagesize()
}

func sysReserve(addr unsafe.Pointer, length uintptr) (unsafe.Pointer, error) {
	if addr != nil {
		return nil, ErrAddressInUse
	}
	return sysMap(length)
}

func sysRelease(p unsafe.Pointer, length uintptr) error {
	return sysUnmap(p, length)
}

func sysCommit(unsafe.Pointer, uintptr) error { return nil }

func sysDecommit(p unsafe.Pointer, length uintptr) error {
	clear(unsafe.Slice((*byte)(p), length))
	return nil
}

func sysMap(length uintptr) (unsafe.Pointer, error) {
	b := make([]byte, length+pageSize)
	start := unsafe.Pointer(unsafe.SliceData(b))
	off := roundUp(uintptr(start), pageSize) - uintptr(start)
	base := unsafe.Add(start, off)
	pinLock.Lock()
	pinned[uintptr(base)] = b
	pinLock.Unlock()
	return base, nil
}

func sysUnmap(p unsafe.Pointer, _ uintptr) error {
	pinLock.Lock()
	delete(pinned, uintptr(p))
	pinLock.Unlock()
	return nil
}
