package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orderfood",
		Short: "Live interaction layer for the OrderFood platform",
		Long: `orderfood runs the live interaction layer that sits between the
browser and the OrderFood backend.

It holds a session per connected tab, coordinates optimistic actions
(approve, reject, delete, cart mutations) with single-flight guarantees,
and keeps feeds and charts fresh with last-issued-wins refreshes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
