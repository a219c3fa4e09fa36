//go:build !linux && !darwin && !windows

package pool

// Without lazy commit a reservation is real memory; keep regions small.
const defaultRegionSize = 1 << 20
