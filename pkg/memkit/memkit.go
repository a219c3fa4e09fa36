package memkit

import (
	"unsafe"

	"github.com/joshuapare/memkit/mem/chain"
	"github.com/joshuapare/memkit/mem/osmem"
	"github.com/joshuapare/memkit/mem/pool"
)

// BucketStatus is the status record filled by QueryAllocationStatus.
type BucketStatus = pool.BucketStatus

// Alloc returns at least size bytes from the default pool, or nil.
func Alloc(size int) unsafe.Pointer {
	return pool.Default().Alloc(size)
}

// Realloc resizes p, preserving min(old, size) bytes. A nil p allocates and a
// zero size frees.
func Realloc(p unsafe.Pointer, size int) unsafe.Pointer {
	return pool.Default().Realloc(p, size)
}

// Free releases p. nil is a no-op.
func Free(p unsafe.Pointer) {
	pool.Default().Free(p)
}

// PoolPurge releases unused pool pages and returns the bytes reclaimed.
func PoolPurge() int64 {
	return pool.Default().Purge()
}

// PoolSize returns the current pool footprint in bytes.
func PoolSize() int64 {
	return pool.Default().Size()
}

// NumberOfBuckets returns the number of pool buckets.
func NumberOfBuckets() int {
	return pool.Default().NumberOfBuckets()
}

// QueryAllocationStatus fills buf with per-bucket status and returns the
// number of records written, at most NumberOfBuckets.
func QueryAllocationStatus(buf []BucketStatus) int {
	return pool.Default().QueryAllocationStatus(buf)
}

// Cleanup purges every registered allocator and returns the bytes reclaimed.
func Cleanup() int64 {
	return chain.Cleanup()
}

// Bytes returns a slice aliasing n bytes at p.
func Bytes(p unsafe.Pointer, n int) []byte {
	return osmem.Bytes(p, n)
}

// Shutdown drops the process reference on the registry. The default pool
// and the other registered allocators are closed once every guard taken with
// chain.Acquire is released as well. Calling it more than once is harmless.
func Shutdown() {
	chain.Shutdown()
}
