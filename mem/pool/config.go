package pool

import (
	"fmt"
	"os"

	"github.com/joshuapare/memkit/mem/chain"
)

// logPool enables per-event logging of page growth, purge and overflow.
var logPool = os.Getenv("MEMKIT_LOG_POOL") != ""

// Config controls the geometry of a Pool.
type Config struct {
	// Classes selects the bucket chunk sizes and the large threshold.
	Classes SizeClassConfig

	// RegionSize is the address space reserved per bucket. Zero builds a
	// bucketless pool that serves every request from virtual memory.
	RegionSize int

	// PageBytes is the preferred commit granularity of a bucket.
	PageBytes int

	// MinChunksPerPage raises the commit granularity of large classes so a
	// page always holds at least this many chunks.
	MinChunksPerPage int

	// Registry the pool joins. Nil means the process-wide registry.
	Registry *chain.Registry
}

// DefaultConfig returns the configuration of the default pool.
func DefaultConfig() Config {
	return Config{
		Classes:          ConfigDefault,
		RegionSize:       defaultRegionSize,
		PageBytes:        64 << 10,
		MinChunksPerPage: 8,
	}
}

// Validate checks the configuration without reserving anything.
func (c Config) Validate() error {
	if err := c.Classes.Validate(); err != nil {
		return err
	}
	if c.RegionSize < 0 {
		return fmt.Errorf("%w: RegionSize %d is negative", ErrBadConfig, c.RegionSize)
	}
	if c.PageBytes <= 0 {
		return fmt.Errorf("%w: PageBytes %d must be positive", ErrBadConfig, c.PageBytes)
	}
	if c.MinChunksPerPage <= 0 {
		return fmt.Errorf("%w: MinChunksPerPage %d must be positive", ErrBadConfig, c.MinChunksPerPage)
	}
	if c.RegionSize > 0 {
		if need := c.largestPage(); c.RegionSize < need {
			return fmt.Errorf("%w: RegionSize %d smaller than the largest bucket page (%d)", ErrBadConfig, c.RegionSize, need)
		}
	}
	return nil
}

// PageBytesFor returns the commit granularity of a bucket with the given
// chunk size, rounded to the OS page.
func (c Config) PageBytesFor(chunkSize int) int {
	n := max(c.PageBytes, c.MinChunksPerPage*chunkSize)
	return roundToPage(n)
}

func (c Config) largestPage() int {
	return c.PageBytesFor(c.Classes.LargeThreshold)
}
