package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/memkit/internal/logger"
	"github.com/joshuapare/memkit/pkg/memkit"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	logLevel string
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:   "memctl",
	Short: "Inspect and exercise the memkit pool allocator",
	Long: `memctl is a diagnostics tool for the memkit allocator. It prints the
bucket size classes, runs allocation workloads against the default pool,
enumerates the allocator registry and runs the concurrent canary stress test.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Enable allocator logging at level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append allocator logs to file instead of stderr")
}

func initLogging() error {
	if logLevel == "" && logFile == "" {
		return nil
	}
	level, ok := logger.ParseLevel(logLevel)
	if logLevel != "" && !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}
	return logger.Init(logger.Options{
		Enabled: true,
		Output:  os.Stderr,
		LogFile: logFile,
		Level:   level,
		JSON:    jsonOut,
	})
}

func execute() {
	err := rootCmd.Execute()
	memkit.Shutdown()
	if err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprint(os.Stdout, printer.Sprintf(format, args...))
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprint(os.Stdout, printer.Sprintf(format, args...))
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
