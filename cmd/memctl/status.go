package main

import (
	"unsafe"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/pkg/memkit"
)

var (
	statusSizes string
	statusCount int
	statusPurge bool
)

func init() {
	cmd := newStatusCmd()
	cmd.Flags().StringVar(&statusSizes, "sizes", "24,100,1000,4000", "Comma separated allocation sizes in bytes")
	cmd.Flags().IntVar(&statusCount, "count", 1000, "Blocks to allocate per size")
	cmd.Flags().BoolVar(&statusPurge, "purge", true, "Free the workload and purge afterwards")
	rootCmd.AddCommand(cmd)
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Allocate a workload and show bucket status",
		Long: `The status command allocates --count blocks of every size in --sizes from
the default pool, prints the status of every bucket in use, then frees the
blocks and purges the pool.

Example:
  memctl status
  memctl status --sizes 24,40000 --count 10
  memctl status --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
	return cmd
}

type statusReport struct {
	Sizes      []int                 `json:"sizes"`
	Count      int                   `json:"count"`
	PoolSize   int64                 `json:"pool_size"`
	Buckets    []memkit.BucketStatus `json:"buckets"`
	Failed     int                   `json:"failed"`
	AfterFree  int64                 `json:"after_free,omitempty"`
	Reclaimed  int64                 `json:"reclaimed,omitempty"`
	AfterPurge int64                 `json:"after_purge,omitempty"`
}

func buildStatusReport(sizes []int, count int, purge bool) statusReport {
	report := statusReport{Sizes: sizes, Count: count}

	ptrs := make([]unsafe.Pointer, 0, len(sizes)*count)
	for _, size := range sizes {
		for range count {
			p := memkit.Alloc(size)
			if p == nil {
				report.Failed++
				continue
			}
			ptrs = append(ptrs, p)
		}
	}

	report.PoolSize = memkit.PoolSize()
	status := make([]memkit.BucketStatus, memkit.NumberOfBuckets())
	n := memkit.QueryAllocationStatus(status)
	for _, st := range status[:n] {
		if st.TotalChunks > 0 || st.UsedChunks > 0 {
			report.Buckets = append(report.Buckets, st)
		}
	}

	if purge {
		for _, p := range ptrs {
			memkit.Free(p)
		}
		report.AfterFree = memkit.PoolSize()
		report.Reclaimed = memkit.PoolPurge()
		report.AfterPurge = memkit.PoolSize()
	}
	return report
}

func runStatus() error {
	sizes, err := parseSizes(statusSizes)
	if err != nil {
		return err
	}
	printVerbose("Allocating %d blocks of each size %v\n", statusCount, sizes)
	report := buildStatusReport(sizes, statusCount, statusPurge)

	if jsonOut {
		return printJSON(report)
	}

	printInfo("Pool size: %s (%d bytes)\n", formatBytes(report.PoolSize), report.PoolSize)
	if report.Failed > 0 {
		printInfo("Failed allocations: %d\n", report.Failed)
	}
	printInfo("\n%10s  %12s  %12s  %6s\n", "chunk", "total", "used", "fill")
	for _, st := range report.Buckets {
		fill := 0.0
		if st.TotalChunks > 0 {
			fill = float64(st.UsedChunks) * 100 / float64(st.TotalChunks)
		}
		printInfo("%10d  %12d  %12d  %5.1f%%\n", st.ChunkSize, st.TotalChunks, st.UsedChunks, fill)
	}
	if statusPurge {
		printInfo("\nAfter free: %s\n", formatBytes(report.AfterFree))
		printInfo("Purged: %s\n", formatBytes(report.Reclaimed))
		printInfo("After purge: %s\n", formatBytes(report.AfterPurge))
	}
	return nil
}
