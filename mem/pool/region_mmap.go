//go:build linux || darwin || windows

package pool

// Reservations are address space only, so buckets can afford a wide region.
const defaultRegionSize = 256 << 20
