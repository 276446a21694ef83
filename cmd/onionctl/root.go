package main

import (
	"context"
	"net/http"

	"github.com/HannahMarsh/simple-onion-routing/config"
	"github.com/HannahMarsh/simple-onion-routing/pkg/infrastructure/logger"
	"github.com/spf13/cobra"
)

type options struct {
	configPath string
	logLevel   string
	cfg        *config.Config
	client     *http.Client
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "onionctl",
		Short:         "Operate a simple onion routing network",
		Long:          "Send messages through a running network, inspect relays and users, and generate configuration.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger.SetUpLogrusAndSlog(opts.logLevel)
			if _, err := config.InitGlobalFrom(opts.configPath); err != nil {
				return err
			}
			opts.cfg = config.GlobalConfig
			opts.client = &http.Client{Timeout: opts.cfg.TransportTimeout()}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to the config file (default config/config.yml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level")

	root.AddCommand(
		newSendCmd(opts),
		newCircuitCmd(opts),
		newUserStateCmd(opts),
		newRelayStateCmd(opts),
		newRegistryCmd(opts),
		newPrometheusConfigCmd(opts),
		newKeygenCmd(opts),
		newPeelCmd(opts),
		newScrapeCmd(opts),
	)
	return root
}

func (o *options) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
