package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dermesser/svcframe"
	"github.com/dermesser/svcframe/log"
	smgr "github.com/dermesser/svcframe/securitymanager"
	"github.com/dermesser/svcframe/service"
	"github.com/dermesser/svcframe/socket"
)

var runCmd = &cobra.Command{
	Use:   "run [key value]...",
	Short: "Run a registered service",
	Long: `Run a registered service. Trailing key/value pairs override values of the config file
(use -- before pairs whose keys start with a dash).`,
	PreRunE: bindFlags,
	RunE:    run,
}

func init() {
	runCmd.Flags().String("service", "", "name of the registered service to run")
	runCmd.Flags().String("config", "", "service config file (yaml, json or toml)")
	runCmd.Flags().String("addresses", "", "addresses file (yaml or json)")
	runCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address (e.g. :9100)")
	runCmd.Flags().String("workflow-id", "", "workflow id attached to sends made outside of handlers")
	runCmd.Flags().Bool("increment-id", false, "append a call counter to the workflow id")
	runCmd.Flags().Duration("poll-timeout", service.DefaultPollTimeout, "upper bound of one event loop poll")
	runCmd.Flags().String("curve-public", "", "CURVE public key file of this service")
	runCmd.Flags().String("curve-private", "", "CURVE private key file of this service")
	runCmd.Flags().String("curve-binder-key", "", "public key file of the binding peers; enables CURVE on connecting sockets")
}

func run(cmd *cobra.Command, args []string) error {
	name := viper.GetString("service")

	if name == "" {
		return fmt.Errorf("no service given; registered: %s", strings.Join(service.Registered(), ", "))
	}

	desc, ok := service.Lookup(name)

	if !ok {
		return fmt.Errorf("unknown service %q; registered: %s", name, strings.Join(service.Registered(), ", "))
	}

	config, err := loadConfig(viper.GetString("config"), args)

	if err != nil {
		return err
	}

	var addresses service.Addresses

	if path := viper.GetString("addresses"); path != "" {
		data, err := os.ReadFile(path)

		if err != nil {
			return err
		}
		if addresses, err = service.LoadAddresses(data); err != nil {
			return err
		}
	}

	factory, err := newFactory()

	if err != nil {
		return err
	}
	defer factory.Close()

	metrics := service.NewMetrics()

	if addr := viper.GetString("metrics-addr"); addr != "" {
		go serveMetrics(addr, metrics)
	}

	s, err := service.New(name, desc, addresses, config, service.Options{
		WorkflowID:  viper.GetString("workflow-id"),
		IncrementID: viper.GetBool("increment-id"),
		PollTimeout: viper.GetDuration("poll-timeout"),
		Factory:     factory,
		Metrics:     metrics,
	})

	if err != nil {
		return err
	}
	defer s.Close()

	return s.Run(cmd.Context())
}

// loadConfig merges the config file, SVCFRAME_* overrides of its keys, and key/value pairs.
func loadConfig(path string, pairs []string) (svcframe.Config, error) {
	fromFile := svcframe.Config{}

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetEnvPrefix("svcframe")
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
		v.AutomaticEnv()

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		fromFile = v.AllSettings()
	}

	fromArgs, err := service.ConfigFromPairs(pairs)

	if err != nil {
		return nil, err
	}

	return service.MergeConfig(fromFile, fromArgs), nil
}

func newFactory() (*socket.Factory, error) {
	public, private := viper.GetString("curve-public"), viper.GetString("curve-private")

	if public == "" && private == "" {
		return socket.NewFactory(nil, nil)
	}
	if public == "" || private == "" {
		return nil, errors.New("--curve-public and --curve-private must be given together")
	}

	binder, err := smgr.NewBinderSecurityManager()

	if err != nil {
		return nil, err
	}
	if err = binder.LoadKeys(public, private); err != nil {
		return nil, err
	}

	var connector *smgr.ConnectorSecurityManager

	if binderKey := viper.GetString("curve-binder-key"); binderKey != "" {
		if connector, err = smgr.NewConnectorSecurityManager(); err != nil {
			return nil, err
		}
		if err = connector.LoadKeys(public, private); err != nil {
			return nil, err
		}
		if err = connector.LoadBinderPubkey(binderKey); err != nil {
			return nil, err
		}
	}

	log.Log(log.LOGLEVEL_INFO, "CURVE enabled with public key", binder.GetPublicKey())
	return socket.NewFactory(binder, connector)
}

func serveMetrics(addr string, m *service.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))

	log.Log(log.LOGLEVEL_INFO, "Serving metrics on", addr)

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Log(log.LOGLEVEL_ERRORS, "Metrics server failed:", err.Error())
	}
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List registered services",
	Run: func(cmd *cobra.Command, _ []string) {
		for _, name := range service.Registered() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}
