/*
Package memkit provides process-wide pool allocation through free functions.

# Quick Start

Allocate, use and free a block:

	p := memkit.Alloc(24)
	if p == nil {
	    memkit.Cleanup()
	    p = memkit.Alloc(24)
	}
	buf := memkit.Bytes(p, 24)
	copy(buf, "hello")
	memkit.Free(p)

# Features

  - Size-classed buckets for requests below 32 KiB
  - Direct virtual memory mapping for larger requests
  - Purge of unused pages back to the OS
  - Per-bucket introspection

# Memory Ownership

Blocks live outside the Go heap. The garbage collector neither scans nor
frees them, so they must not hold the only reference to Go-allocated values,
and every block must be released with Free exactly once.

# Out of Memory

Alloc and Realloc return nil when memory is exhausted; they never panic for
that reason. The recovery idiom is to call Cleanup, which purges every
registered allocator, and retry once.

# Lifetime

The allocator registry holds a reference for the process from the moment it
is created, so the default pool stays valid no matter how callers take and
release guards. Call Shutdown when the program no longer frees pool memory;
once that reference and every guard taken with chain.Acquire are released,
the default pool is closed and its chunks become invalid.

# Thread Safety

All functions are safe for concurrent use.
*/
package memkit
