// Package chain tracks every live allocator in the process.
//
// # Overview
//
// Allocators join a Registry by embedding Link and calling Join on
// construction, and leave it with Leave before their memory goes away. The
// registry is a singly linked list in registration order; joining appends at
// the tail and leaving scans for the predecessor, both O(n) in the number of
// allocators, which are expected to be few and long-lived.
//
// # Maintenance
//
//   - Cleanup purges every registered allocator and returns the bytes
//     reclaimed. It is the recommended recovery step after an allocation
//     failure, before retrying.
//   - FirstAllocator and NextAllocator walk the list for diagnostics. The walk
//     is not a snapshot: allocators joining or leaving concurrently may or may
//     not be visited.
//
// # Lifetime guards
//
// Long-lived holders of allocator-backed memory acquire a Guard. The registry
// stays alive while at least one guard is held; when the last guard is
// released the registry is torn down, every member implementing io.Closer is
// closed, and the next call to Instance builds a fresh registry. Memory freed
// after its registry was torn down without a guard is undefined behaviour.
//
// # Thread Safety
//
// All exported functions and methods are safe for concurrent use. Structural
// changes take the registry's spin lock for the duration of the list update
// only; Cleanup purges members after releasing it.
package chain
