//go:build !memdebug

// Package debug carries the compile-time switch for internal invariant checks.
package debug

// Enabled is true in builds tagged memdebug.
const Enabled = false

// Assert is compiled out of release builds.
func Assert(bool, string, ...any) {}
