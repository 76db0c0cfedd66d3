// Package main implements the memcore CLI for manual operations against a
// local Memory Core store: store/query/stats against the on-disk database
// directly, no server process involved.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath, if set, is passed through to config.Load.
	configPath string
	// version is stamped at build time; dev by default.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "memcore",
	Short:   "CLI for local Memory Core store operations",
	Version: version,
	Long: `memcore is a command-line interface for storing, querying, and
inspecting a Memory Core database directly on disk.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(statsCmd)
}
