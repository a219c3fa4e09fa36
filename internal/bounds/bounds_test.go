package bounds

import (
	"math"
	"testing"
)

func TestAdd(t *testing.T) {
	if sum, ok := Add(10, 5); !ok || sum != 15 {
		t.Fatalf("Add(10,5)=%d,%v want 15,true", sum, ok)
	}
	if _, ok := Add(math.MaxInt, 1); ok {
		t.Fatalf("expected overflow when adding to MaxInt")
	}
	if _, ok := Add(math.MinInt, -1); ok {
		t.Fatalf("expected underflow when subtracting from MinInt")
	}
}

func TestMul(t *testing.T) {
	tests := []struct {
		a, b   int
		want   int
		wantOK bool
	}{
		{0, math.MaxInt, 0, true},
		{36, 256 << 20, 36 * (256 << 20), true},
		{math.MaxInt/2 + 1, 2, 0, false},
		{-1, 4, 0, false},
		{4, -1, 0, false},
	}
	for _, tt := range tests {
		got, ok := Mul(tt.a, tt.b)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("Mul(%d,%d)=%d,%v want %d,%v", tt.a, tt.b, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n, align int
		want     int
		wantOK   bool
	}{
		{0, 4096, 0, true},
		{1, 4096, 4096, true},
		{4096, 4096, 4096, true},
		{4097, 4096, 8192, true},
		{17, 16, 32, true},
		{math.MaxInt - 10, 4096, 0, false},
		{-1, 16, 0, false},
		{10, 24, 0, false},
		{10, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := AlignUp(tt.n, tt.align)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("AlignUp(%d,%d)=%d,%v want %d,%v", tt.n, tt.align, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestWithin(t *testing.T) {
	if !Within(5, 2, 3) {
		t.Fatalf("Within should be true for a range ending at size")
	}
	if Within(5, 4, 2) {
		t.Fatalf("Within should fail when extending beyond size")
	}
	if Within(5, -1, 1) || Within(5, 1, -1) {
		t.Fatalf("Within should reject negative offset or length")
	}
	if Within(math.MaxInt, math.MaxInt-1, 5) {
		t.Fatalf("Within should reject overflowing ranges")
	}
}
