// Package app wires the fleetsyncd command line: flag parsing, config file and
// environment merging, and the daemon's run loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fleetsync-io/fleetsync/cmd/fleetsyncd/app/options"
	"github.com/fleetsync-io/fleetsync/internal/server"
	"github.com/fleetsync-io/fleetsync/pkg/log"
)

const (
	commandName = "fleetsyncd"
	commandDesc = `The FleetSync daemon keeps a fleet-tracking dashboard's vehicle dataset
fresh: it periodically pulls vehicle records from the upstream tracking API,
persists them in a durable record store with day-scoped batch replacement,
and serves the stored data over a paginated HTTP API backed by a compressed
in-process cache.`

	envPrefix = "FLEETSYNC"
)

// NewApp builds the root command with all subcommands attached.
func NewApp() *cobra.Command {
	opts := options.NewServerOptions()
	var cfgFile string

	cmd := &cobra.Command{
		Use:           commandName,
		Short:         "Launch the FleetSync data freshness daemon",
		Long:          commandDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, cfgFile, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Path to the configuration file. Defaults to ./fleetsyncd.yaml if present.")
	opts.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(newVehiclesCommand(opts))
	return cmd
}

// loadConfig layers configuration sources: .env file, config file, environment
// variables, then command-line flags, highest priority last.
func loadConfig(cmd *cobra.Command, cfgFile string, opts *options.ServerOptions) error {
	// A missing .env file is the normal case outside development.
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(commandName)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/fleetsync")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

func run(opts *options.ServerOptions) error {
	if err := opts.Complete(); err != nil {
		return err
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	log.Init(opts.Log)
	logger := log.Std()

	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("Starting fleetsyncd",
		"storeBackend", opts.StoreOptions.Backend,
		"upstreamMode", opts.UpstreamOptions.Mode,
		"dailyHour", opts.SyncOptions.DailyHour)
	return srv.Run(ctx)
}
