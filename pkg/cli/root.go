// Package cli implements the gridfeed command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gridfeed",
	Short: "gridfeed serves a simulated live race-position feed",
	Long: `gridfeed is a small HTTP service that simulates a live race-position feed.
It loads a driver grid from a configurable roster source and shuffles the
running order over time with weighted adjacent swaps, advanced lazily on read.

Configuration can be provided via flags, environment variables (GRIDFEED_*),
or a YAML configuration file.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
