//go:build windows

package osmem

import (
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

func sysPageSize() int {
	return os.Getpagesize()
}

func sysReserve(addr unsafe.Pointer, length uintptr) (unsafe.Pointer, error) {
	p, err := windows.VirtualAlloc(uintptr(addr), length, windows.MEM_RESERVE, windows.PAGE_NOACCESS)
	if err != nil {
		if addr != nil {
			return nil, ErrAddressInUse
		}
		return nil, err
	}
	return unsafe.Pointer(p), nil
}

func sysRelease(p unsafe.Pointer, _ uintptr) error {
	return windows.VirtualFree(uintptr(p), 0, windows.MEM_RELEASE)
}

func sysCommit(p unsafe.Pointer, length uintptr) error {
	_, err := windows.VirtualAlloc(uintptr(p), length, windows.MEM_COMMIT, windows.PAGE_READWRITE)
	return err
}

func sysDecommit(p unsafe.Pointer, length uintptr) error {
	return windows.VirtualFree(uintptr(p), length, windows.MEM_DECOMMIT)
}

func sysMap(length uintptr) (unsafe.Pointer, error) {
	p, err := windows.VirtualAlloc(0, length, windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}
	return unsafe.Pointer(p), nil
}

func sysUnmap(p unsafe.Pointer, _ uintptr) error {
	return windows.VirtualFree(uintptr(p), 0, windows.MEM_RELEASE)
}
