// Package cmd provides the CLI commands for the Cedar decision point.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/expert-ai/cedar/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "cedar",
	Short: "Cedar - authorization decision point",
	Long: `Cedar is the authorization decision point for the Expert Agent platform.

It evaluates "may principal perform action on resource" questions against a
set of permit/forbid policies with CEL conditions. Explicit forbids always
win, and requests no policy matches are denied by default.

Quick start:
  1. Create a config file: cedar.yaml (optional; built-in platform
     policies are used when no policies are configured)
  2. Run: cedar serve

Configuration:
  Config is loaded from cedar.yaml in the current directory,
  $HOME/.cedar/, or /etc/cedar/.

  Environment variables can override config values with the CEDAR_ prefix.
  Example: CEDAR_SERVER_HTTP_ADDR=:9090

Commands:
  serve       Start the decision point server
  check       Evaluate a single authorization request
  validate    Validate a config file and its policies
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./cedar.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
