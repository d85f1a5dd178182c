package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dermesser/svcframe/log"
	"github.com/dermesser/svcframe/socket"
)

var busCmd = &cobra.Command{
	Use:   "bus",
	Short: "Relay between x-pub publishers and subscribers",
	Long: `Run an XSUB/XPUB proxy. Publishers created with is_x_pub connect to the publisher
side; subscribers connect to the subscriber side.`,
	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		f, err := socket.NewFactory(nil, nil)

		if err != nil {
			return err
		}
		defer f.Close()

		pubSide, subSide := viper.GetString("publisher-side"), viper.GetString("subscriber-side")
		log.Log(log.LOGLEVEL_INFO, "Bus relaying", pubSide, "->", subSide)

		return f.RunBus(ctx, pubSide, subSide)
	},
}

func init() {
	busCmd.Flags().String("publisher-side", "127.0.0.1:5559", "address publishers connect to")
	busCmd.Flags().String("subscriber-side", "127.0.0.1:5560", "address subscribers connect to")
}
