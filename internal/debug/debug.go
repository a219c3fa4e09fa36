//go:build memdebug

// Package debug carries the compile-time switch for internal invariant checks.
package debug

import "fmt"

// Enabled is true in builds tagged memdebug.
const Enabled = true

// Assert panics with the formatted message when cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf(format, args...))
	}
}
