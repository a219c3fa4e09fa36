package pool

import (
	"fmt"
	"math"
)

const (
	// Alignment is the granularity of every chunk size and the alignment of
	// every chunk the pool hands out.
	Alignment = 16

	// LargeThreshold is the default size at and above which requests bypass
	// the buckets and are mapped directly.
	LargeThreshold = 32 << 10
)

// SizeClassConfig defines the bucket size class strategy.
type SizeClassConfig struct {
	// Name for this configuration (for memctl and benchmarks)
	Name string

	// Small allocation settings (linear increments)
	SmallMin       int // Smallest chunk size
	SmallMax       int // Last chunk size of the linear phase
	SmallIncrement int // Step of the linear phase

	// Medium allocation settings (geometric growth up to the threshold)
	GrowthFactor   float64
	LargeThreshold int // Requests of this size and above are large allocations
}

// Predefined configurations.
var (
	// ConfigDefault: 16-128 step 16 (8 classes) + x1.25 up to 32K (25 classes).
	ConfigDefault = SizeClassConfig{
		Name:           "Default",
		SmallMin:       16,
		SmallMax:       128,
		SmallIncrement: 16,
		GrowthFactor:   1.25,
		LargeThreshold: LargeThreshold,
	}

	// ConfigCoarse: powers of two from 16 to 32K (12 classes). Fewer pages
	// committed per workload, more internal fragmentation.
	ConfigCoarse = SizeClassConfig{
		Name:           "Coarse",
		SmallMin:       16,
		SmallMax:       16,
		SmallIncrement: 16,
		GrowthFactor:   2.0,
		LargeThreshold: LargeThreshold,
	}

	// ConfigFine: 16-256 step 16 (16 classes) + x1.125 up to 32K (~40 classes).
	ConfigFine = SizeClassConfig{
		Name:           "Fine",
		SmallMin:       16,
		SmallMax:       256,
		SmallIncrement: 16,
		GrowthFactor:   1.125,
		LargeThreshold: LargeThreshold,
	}
)

// maxClasses bounds the table so a class index fits the lookup byte.
const maxClasses = 255

// Validate reports whether the configuration can produce a class table.
func (c SizeClassConfig) Validate() error {
	switch {
	case c.SmallMin <= 0 || c.SmallMin%Alignment != 0:
		return fmt.Errorf("%w: SmallMin %d must be a positive multiple of %d", ErrBadConfig, c.SmallMin, Alignment)
	case c.SmallIncrement <= 0 || c.SmallIncrement%Alignment != 0:
		return fmt.Errorf("%w: SmallIncrement %d must be a positive multiple of %d", ErrBadConfig, c.SmallIncrement, Alignment)
	case c.SmallMax < c.SmallMin:
		return fmt.Errorf("%w: SmallMax %d below SmallMin %d", ErrBadConfig, c.SmallMax, c.SmallMin)
	case c.GrowthFactor <= 1:
		return fmt.Errorf("%w: GrowthFactor %g must be greater than 1", ErrBadConfig, c.GrowthFactor)
	case c.LargeThreshold <= c.SmallMax || c.LargeThreshold%Alignment != 0:
		return fmt.Errorf("%w: LargeThreshold %d must be a multiple of %d above SmallMax", ErrBadConfig, c.LargeThreshold, Alignment)
	}
	return nil
}

// classTable holds the computed chunk sizes and the size -> class lookup.
type classTable struct {
	config SizeClassConfig
	sizes  []int   // chunk size of each class, ascending
	lookup []uint8 // class index for each Alignment-sized step of request size
}

// newClassTable computes the chunk sizes from config.
func newClassTable(config SizeClassConfig) (*classTable, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	t := &classTable{
		config: config,
		sizes:  make([]int, 0, 64),
	}

	// Phase 1: linear
	size := config.SmallMin
	for ; size <= config.SmallMax; size += config.SmallIncrement {
		t.sizes = append(t.sizes, size)
	}
	size = t.sizes[len(t.sizes)-1]

	// Phase 2: geometric, last class clamped to the threshold
	for size < config.LargeThreshold {
		next := alignUp(int(math.Ceil(float64(size) * config.GrowthFactor)))
		if next <= size {
			next = size + Alignment
		}
		next = min(next, config.LargeThreshold)
		t.sizes = append(t.sizes, next)
		size = next
	}
	if len(t.sizes) > maxClasses {
		return nil, fmt.Errorf("%w: %d size classes, at most %d supported", ErrBadConfig, len(t.sizes), maxClasses)
	}

	// Class sizes are multiples of Alignment, so the smallest class holding
	// alignUp(n) is also the smallest holding n.
	steps := config.LargeThreshold / Alignment
	t.lookup = make([]uint8, steps+1)
	class := 0
	for step := 0; step <= steps; step++ {
		for t.sizes[class] < step*Alignment {
			class++
		}
		t.lookup[step] = uint8(class)
	}
	return t, nil
}

// classOf returns the class serving a request of 0 < size < threshold.
func (t *classTable) classOf(size int) int {
	return int(t.lookup[(size+Alignment-1)/Alignment])
}

func (t *classTable) threshold() int { return t.config.LargeThreshold }

// NumClasses returns the number of size classes.
func (t *classTable) NumClasses() int { return len(t.sizes) }

func (t *classTable) String() string { return t.config.Name }

// ChunkSizes returns the chunk size of every class a configuration produces.
func ChunkSizes(config SizeClassConfig) ([]int, error) {
	t, err := newClassTable(config)
	if err != nil {
		return nil, err
	}
	return append([]int(nil), t.sizes...), nil
}

func alignUp(n int) int {
	return (n + Alignment - 1) &^ (Alignment - 1)
}
