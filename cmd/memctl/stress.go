package main

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/pkg/memkit"
)

var (
	stressWorkers int
	stressOps     int
	stressMaxSize int
	stressSeed    int64
)

// errStressFailed reports corruption or a footprint that did not return to
// its starting value.
var errStressFailed = errors.New("stress test failed")

func init() {
	cmd := newStressCmd()
	cmd.Flags().IntVar(&stressWorkers, "workers", 8, "Concurrent workers")
	cmd.Flags().IntVar(&stressOps, "ops", 100000, "Alloc/free operations per worker")
	cmd.Flags().IntVar(&stressMaxSize, "max-size", 2048, "Largest allocation in bytes")
	cmd.Flags().Int64Var(&stressSeed, "seed", 1, "Random seed of worker 0")
	rootCmd.AddCommand(cmd)
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run the concurrent canary stress test",
		Long: `The stress command runs --workers goroutines, each performing --ops
interleaved allocations and frees of random sizes on the default pool. Every
block is filled with a canary pattern that is checked before it is freed.
After a final purge the pool footprint must equal its starting value.

Example:
  memctl stress
  memctl stress --workers 16 --ops 1000000
  memctl stress --max-size 40000 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStress()
		},
	}
	return cmd
}

type stressReport struct {
	Workers    int           `json:"workers"`
	OpsPer     int           `json:"ops_per_worker"`
	MaxSize    int           `json:"max_size"`
	SizeBefore int64         `json:"size_before"`
	SizePeak   int64         `json:"size_peak"`
	SizeAfter  int64         `json:"size_after"`
	Reclaimed  int64         `json:"reclaimed"`
	Corrupted  int64         `json:"corrupted"`
	Failed     int64         `json:"failed"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

func (r stressReport) ok() bool {
	return r.Corrupted == 0 && r.Failed == 0 && r.SizeAfter == r.SizeBefore
}

type stressBlock struct {
	ptr  unsafe.Pointer
	size int
	seed byte
}

func canaryFill(b stressBlock) {
	buf := memkit.Bytes(b.ptr, b.size)
	for i := range buf {
		buf[i] = b.seed ^ byte(i)
	}
}

func canaryCheck(b stressBlock) bool {
	buf := memkit.Bytes(b.ptr, b.size)
	for i := range buf {
		if buf[i] != b.seed^byte(i) {
			return false
		}
	}
	return true
}

func buildStressReport(workers, ops, maxSize int, seed int64) (stressReport, error) {
	if workers <= 0 || ops < 0 || maxSize <= 0 {
		return stressReport{}, fmt.Errorf("workers and max-size must be positive, ops must not be negative")
	}
	memkit.PoolPurge()
	report := stressReport{
		Workers:    workers,
		OpsPer:     ops,
		MaxSize:    maxSize,
		SizeBefore: memkit.PoolSize(),
	}

	var corrupted, failed, peak atomic.Int64
	peak.Store(report.SizeBefore)
	notePeak := func() {
		size := memkit.PoolSize()
		for cur := peak.Load(); size > cur && !peak.CompareAndSwap(cur, size); cur = peak.Load() {
		}
	}

	start := time.Now()
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed + int64(w)))
			live := make([]stressBlock, 0, 256)

			release := func(i int) {
				if !canaryCheck(live[i]) {
					corrupted.Add(1)
				}
				memkit.Free(live[i].ptr)
				live[i] = live[len(live)-1]
				live = live[:len(live)-1]
			}

			for op := range ops {
				if len(live) > 0 && (len(live) == cap(live) || rng.Intn(2) == 0) {
					release(rng.Intn(len(live)))
					continue
				}
				b := stressBlock{size: 1 + rng.Intn(maxSize), seed: byte(w*131 + op)}
				if b.ptr = memkit.Alloc(b.size); b.ptr == nil {
					failed.Add(1)
					continue
				}
				canaryFill(b)
				live = append(live, b)
				if op%4096 == 0 {
					notePeak()
				}
			}
			for len(live) > 0 {
				release(len(live) - 1)
			}
		}()
	}
	wg.Wait()

	report.Elapsed = time.Since(start)
	report.SizePeak = peak.Load()
	report.Reclaimed = memkit.PoolPurge()
	report.SizeAfter = memkit.PoolSize()
	report.Corrupted = corrupted.Load()
	report.Failed = failed.Load()
	return report, nil
}

func runStress() error {
	printVerbose("Running %d workers x %d operations (sizes 1-%d)\n", stressWorkers, stressOps, stressMaxSize)
	report, err := buildStressReport(stressWorkers, stressOps, stressMaxSize, stressSeed)
	if err != nil {
		return err
	}

	if jsonOut {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		total := int64(report.Workers) * int64(report.OpsPer)
		rate := float64(total) / report.Elapsed.Seconds()
		printInfo("Operations: %s in %s (%s ops/s)\n", formatNumber(total), report.Elapsed.Round(time.Millisecond), formatNumber(int64(rate)))
		printInfo("Pool size before: %s\n", formatBytes(report.SizeBefore))
		printInfo("Pool size peak:   %s\n", formatBytes(report.SizePeak))
		printInfo("Pool size after:  %s (purged %s)\n", formatBytes(report.SizeAfter), formatBytes(report.Reclaimed))
		printInfo("Corrupted blocks: %d\n", report.Corrupted)
		printInfo("Failed allocations: %d\n", report.Failed)
	}

	if !report.ok() {
		return fmt.Errorf("%w: %d corrupted, %d failed, size %d -> %d",
			errStressFailed, report.Corrupted, report.Failed, report.SizeBefore, report.SizeAfter)
	}
	return nil
}
