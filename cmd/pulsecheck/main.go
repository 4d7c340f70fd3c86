// Package main is the entry point for the pulsecheck CLI.
//
// Usage:
//
//	pulsecheck serve -c config.yaml    # Start the API and the check worker
//	pulsecheck validate -c config.yaml # Validate configuration
//	pulsecheck version                 # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "pulsecheck",
	Short: "An uptime monitor with SMS alerts",
	Long: `pulsecheck is a self-contained uptime monitor.

Users register HTTP and HTTPS checks through a JSON API. A background
worker probes every check on a fixed interval and texts the owner when
a check goes up or down.

Quick start:
  1. Create a config file (pulsecheck.yaml)
  2. Run: pulsecheck serve -c pulsecheck.yaml
  3. POST /user, POST /token, then POST /check on http://localhost:3000

Example config:
  port: 3000
  secret_key: ${PULSECHECK_SECRET:-dev-secret}
  store:
    driver: bolt
    path: .data/pulsecheck.db`,
}

// Execute runs the root command.
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
	Long:  `Print the version, commit hash, and build date of this pulsecheck binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pulsecheck %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
