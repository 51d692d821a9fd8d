// Package cmd defines the CLI commands for the sitescout executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitescout",
		Short: "A crawl-and-search service for single sites.",
		Long: `sitescout crawls a site breadth-first from a seed URL, scores every
page against a search term, and streams progress to subscribers while the
ranked result set is being built.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (defaults and SITESCOUT_* env vars are used when omitted)")

	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
