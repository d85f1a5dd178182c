package main

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dermesser/svcframe/log"
)

// initConfig loads .env files and binds SVCFRAME_* environment variables.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("svcframe")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// bindFlags makes flag values (and their environment overrides) available through viper and
// applies the log level.
func bindFlags(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	level, err := log.ParseLevel(viper.GetString("log-level"))

	if err != nil {
		return err
	}

	log.SetLoglevel(level)
	return nil
}
