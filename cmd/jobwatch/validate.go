package main

import (
	"fmt"

	"github.com/jpalmerr/jobwatch/config"
	"github.com/spf13/cobra"
)

// validateCmd validates a config file without watching anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a JobWatch configuration file without watching any jobs.

This command parses the YAML, expands environment variables, and validates
all fields. It's useful for CI/CD pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  jobwatch validate -c config.yaml
  jobwatch validate --config /etc/jobwatch/config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	authConfigured := "no"
	if cfg.AuthToken != "" {
		authConfigured = "yes"
	}

	fmt.Printf("Config is valid!\n")
	fmt.Printf("  Status URL:      %s\n", cfg.StatusURL)
	fmt.Printf("  Auth token:      %s\n", authConfigured)
	fmt.Printf("  Poll interval:   %s\n", cfg.PollInterval.Duration())
	fmt.Printf("  Request timeout: %s\n", cfg.RequestTimeout.Duration())
	fmt.Printf("  Max retries:     %d\n", *cfg.MaxRetries)
	fmt.Printf("  Port:            %d\n", cfg.Port)
	fmt.Printf("  Jobs:            %d configured\n", len(cfg.Jobs))

	return nil
}
