// Package bounds has overflow-checked arithmetic for allocation sizes.
package bounds

import "math"

// Add adds a and b, returning ok = false when the result would overflow int.
func Add(a, b int) (int, bool) {
	switch {
	case b > 0 && a > math.MaxInt-b:
		return 0, false
	case b < 0 && a < math.MinInt-b:
		return 0, false
	default:
		return a + b, true
	}
}

// Mul multiplies two non-negative sizes, returning ok = false on overflow or
// a negative operand.
func Mul(a, b int) (int, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxInt/b {
		return 0, false
	}
	return a * b, true
}

// AlignUp rounds n up to a multiple of align, which must be a power of two.
// ok is false for negative n or when the result would overflow.
func AlignUp(n, align int) (int, bool) {
	if n < 0 || align <= 0 || align&(align-1) != 0 {
		return 0, false
	}
	sum, ok := Add(n, align-1)
	if !ok {
		return 0, false
	}
	return sum &^ (align - 1), true
}

// Within reports whether [off, off+n) lies inside a range of length size.
func Within(size, off, n int) bool {
	if off < 0 || n < 0 || off > size {
		return false
	}
	end, ok := Add(off, n)
	return ok && end <= size
}
