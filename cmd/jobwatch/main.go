// Package main is the entry point for the jobwatch CLI.
//
// JobWatch can be used either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	jobwatch watch -c config.yaml <job-id>... # Watch jobs until they finish
//	jobwatch validate -c config.yaml          # Validate configuration
//	jobwatch version                          # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "jobwatch",
	Short: "A polling client for background job status",
	Long: `JobWatch polls a job-status REST endpoint for long-running
background jobs and reports progress and terminal outcomes.

Quick start:
  1. Create a config file (jobwatch.yaml)
  2. Run: jobwatch watch -c jobwatch.yaml <job-id>

Example config:
  status_url: https://api.example.com/api/jobs
  auth_token: ${API_TOKEN}
  poll_interval: 3s`,
	// No Run/RunE means this just shows help when called without subcommands
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this jobwatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jobwatch %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Register subcommands with root
	rootCmd.AddCommand(versionCmd)
}
