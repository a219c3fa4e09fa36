package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/mem/pool"
)

var classesTable string

func init() {
	cmd := newClassesCmd()
	cmd.Flags().StringVar(&classesTable, "classes", "default", "Size class table (default, coarse, fine)")
	rootCmd.AddCommand(cmd)
}

func newClassesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Show the bucket size classes",
		Long: `The classes command prints every bucket of a size class table with its
chunk size, commit page size and chunks per page.

Example:
  memctl classes
  memctl classes --classes coarse
  memctl classes --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClasses()
		},
	}
	return cmd
}

type classInfo struct {
	Index         int `json:"index"`
	ChunkSize     int `json:"chunk_size"`
	PageBytes     int `json:"page_bytes"`
	ChunksPerPage int `json:"chunks_per_page"`
	WastePerPage  int `json:"waste_per_page"`
}

type classesReport struct {
	Table          string      `json:"table"`
	LargeThreshold int         `json:"large_threshold"`
	Classes        []classInfo `json:"classes"`
}

func buildClassesReport(name string) (classesReport, error) {
	classes, err := classConfigByName(name)
	if err != nil {
		return classesReport{}, err
	}
	sizes, err := pool.ChunkSizes(classes)
	if err != nil {
		return classesReport{}, fmt.Errorf("failed to build class table: %w", err)
	}

	cfg := pool.DefaultConfig()
	cfg.Classes = classes
	report := classesReport{
		Table:          classes.Name,
		LargeThreshold: classes.LargeThreshold,
		Classes:        make([]classInfo, 0, len(sizes)),
	}
	for i, size := range sizes {
		page := cfg.PageBytesFor(size)
		report.Classes = append(report.Classes, classInfo{
			Index:         i,
			ChunkSize:     size,
			PageBytes:     page,
			ChunksPerPage: page / size,
			WastePerPage:  page % size,
		})
	}
	return report, nil
}

func runClasses() error {
	report, err := buildClassesReport(classesTable)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(report)
	}

	printInfo("Size classes: %s (%d buckets, large threshold %d bytes)\n\n",
		report.Table, len(report.Classes), report.LargeThreshold)
	printInfo("%5s  %10s  %10s  %8s  %6s\n", "index", "chunk", "page", "chunks", "waste")
	for _, c := range report.Classes {
		printInfo("%5d  %10d  %10d  %8d  %6d\n", c.Index, c.ChunkSize, c.PageBytes, c.ChunksPerPage, c.WastePerPage)
	}
	printVerbose("\nRequests of %s and above are mapped directly.\n", formatBytes(int64(report.LargeThreshold)))
	return nil
}
