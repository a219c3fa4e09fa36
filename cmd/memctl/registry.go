package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/mem/allocator"
	"github.com/joshuapare/memkit/mem/chain"
)

var registryCleanup bool

func init() {
	cmd := newRegistryCmd()
	cmd.Flags().BoolVar(&registryCleanup, "cleanup", false, "Purge every allocator after listing")
	rootCmd.AddCommand(cmd)
}

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "List registered allocators",
		Long: `The registry command creates the default allocators and lists every
allocator in the process registry in registration order.

Example:
  memctl registry
  memctl registry --cleanup
  memctl registry --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistry()
		},
	}
	return cmd
}

type registryEntry struct {
	Location    string `json:"location"`
	Description string `json:"description"`
}

type registryReport struct {
	Allocators []registryEntry `json:"allocators"`
	Guards     int             `json:"guards"`
	Purged     int64           `json:"purged,omitempty"`
}

func buildRegistryReport(cleanup bool) registryReport {
	for _, loc := range []chain.Location{allocator.LocationHeap, allocator.LocationVirtual, allocator.LocationPool} {
		allocator.Default(loc)
	}

	reg := chain.Instance()
	report := registryReport{Guards: reg.Refs()}
	for m := range reg.All() {
		report.Allocators = append(report.Allocators, registryEntry{
			Location:    m.Location().String(),
			Description: m.Describe(),
		})
	}
	if cleanup {
		report.Purged = reg.Cleanup()
	}
	return report
}

func runRegistry() error {
	report := buildRegistryReport(registryCleanup)
	if jsonOut {
		return printJSON(report)
	}

	printInfo("Registered allocators: %d (guards held: %d)\n\n", len(report.Allocators), report.Guards)
	for i, e := range report.Allocators {
		printInfo("%3d  %-8s  %s\n", i, e.Location, e.Description)
	}
	if registryCleanup {
		printInfo("\nPurged: %s\n", formatBytes(report.Purged))
	}
	return nil
}
