// Command bridge runs the putioarr bridge: a Transmission-RPC-dialect
// server backed by a put.io-shaped cloud download service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Process exit codes.
const (
	exitSuccess     = 0
	exitConfigError = 1
	exitAuthFailure = 2
	exitBindFailure = 3
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "putioarr-bridge",
		Short: "Bridge a Transmission-RPC media manager to a put.io-shaped cloud download service",
		RunE:  runBridge,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the TOML config file")

	root.AddCommand(runSubcommand())
	root.AddCommand(getTokenCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}
}

func runSubcommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bridge (default when no subcommand is given)",
		RunE:  runBridge,
	}
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/putioarr-bridge/config.toml"
	}
	return "./config.toml"
}
