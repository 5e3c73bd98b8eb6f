package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for rgwscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rgwscan",
		Short: "Collect radosgw-admin JSON output from cephci test logs",
		Long: `rgwscan crawls a cephci results directory, downloads the test logs it
links to, and extracts every radosgw-admin command together with the JSON
it printed and the Ceph version under test.

Records are grouped by subcommand ("realm", "zone", "bucket", ...) and
written to <category>_outputs.json files in the output directory. Each run
is also stored in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs to stderr as JSON")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewParseCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
