package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/dermesser/svcframe/examples/echo"
)

var rootCmd = &cobra.Command{
	Use:   "svcframe",
	Short: "run message-driven services over ZeroMQ",
	Long: `svcframe runs services that talk over request/reply and publish/subscribe channels
with validated message contracts, and replicates state between them.

Flags can also be given as environment variables of the form SVCFRAME_<flag>
(e.g. SVCFRAME_LOG_LEVEL=debug).`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(busCmd)
	rootCmd.AddCommand(servicesCmd)

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error, none)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
