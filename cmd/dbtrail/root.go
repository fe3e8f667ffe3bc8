package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	cfgPath string

	rootCmd = &cobra.Command{
		Use:   "dbtrail",
		Short: "dbt Cloud run metadata forwarder",
		Long: `dbtrail - dbt Cloud to Datadog log forwarder

dbtrail receives dbt Cloud job webhooks, pages the Discovery API for the
resources executed in that run, and forwards one log record per resource
to Datadog Logs, tagged with run context.

Nothing is stored between webhooks: every delivery is correlated and
forwarded in one pass.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`dbtrail {{.Version}} - dbt Cloud run metadata forwarder
`)
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to TOML config file")
}
