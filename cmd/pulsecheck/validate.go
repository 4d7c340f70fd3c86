package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsecheck/config"
)

// validateCmd validates a config file without starting the server.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a pulsecheck configuration file without starting the server.

This command parses the YAML, expands environment variables, and validates
all fields. It does not open the store or connect to the notifier.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pulsecheck validate -c config.yaml`,
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

	storeDesc := cfg.Store.Driver
	if cfg.Store.Path != "" {
		storeDesc += " (" + cfg.Store.Path + ")"
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Env:           %s\n", cfg.Env)
	fmt.Fprintf(out, "  Port:          %d\n", cfg.Port)
	fmt.Fprintf(out, "  Poll interval: %s\n", cfg.PollInterval.Duration())
	fmt.Fprintf(out, "  Token TTL:     %s\n", cfg.TokenTTL.Duration())
	fmt.Fprintf(out, "  Max checks:    %d per user\n", cfg.MaxChecks)
	fmt.Fprintf(out, "  Store:         %s\n", storeDesc)
	fmt.Fprintf(out, "  Notifier:      %s\n", cfg.Notifier.Driver)

	return nil
}
