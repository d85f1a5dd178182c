package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	smgr "github.com/dermesser/svcframe/securitymanager"
)

var keygenCmd = &cobra.Command{
	Use:     "keygen",
	Short:   "Generate a CURVE key pair",
	PreRunE: bindFlags,
	RunE: func(cmd *cobra.Command, _ []string) error {
		mgr, err := smgr.NewConnectorSecurityManager()

		if err != nil {
			return err
		}

		pub, priv := viper.GetString("pub"), viper.GetString("priv")

		if err = mgr.WriteKeys(pub, priv); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Wrote key pair to", pub, "and", priv)
		return nil
	},
}

func init() {
	keygenCmd.Flags().String("pub", "publickey.txt", "file to write the public key to")
	keygenCmd.Flags().String("priv", "privatekey.txt", "file to write the private key to")
}
