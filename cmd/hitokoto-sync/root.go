package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Yoshino-s/hitokoto-api/internal/config"
	"github.com/Yoshino-s/hitokoto-api/internal/logging"
)

var (
	// v collects flag bindings before the config is loaded.
	v = viper.New()

	configFile string

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "hitokoto-sync",
	Short: "Sync hitokoto sentence bundles into an A/B slotted store",
	Long: `hitokoto-sync loads a sentence bundle (version.json, categories.json and one
sentence file per category) into a key-value store.

The store holds two slots, a and b, and a pointer naming the live one. A sync
writes into the slot that is not live and switches the pointer only once that
slot is complete, so readers always see one whole bundle version.

Configuration is read from hitokoto-sync.yaml (or --config), HITOKOTO_*
environment variables and flags, flags winning.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, configFile)
		if err != nil {
			return err
		}

		opts := logging.DefaultOptions()
		opts.Level = loaded.Log.Level
		opts.Format = logging.Format(loaded.Log.Format)
		opts.File = loaded.Log.File
		l, closer, err := logging.New(opts)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}

		cfg, logger, logCloser = loaded, l, closer
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: ./hitokoto-sync.{yaml,toml,json})")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("log-file", "", "write logs to this file, rotated")
	flags.String("bundle", "./bundle", "sentence bundle root directory")
	flags.String("driver", config.DriverSQLite, "store driver: sqlite or badger")
	flags.String("store", "hitokoto.db", "sqlite file or badger directory")
	flags.String("prefix", "hitokoto:", "global key prefix")

	bind(flags.Lookup("log-level"), "log.level")
	bind(flags.Lookup("log-format"), "log.format")
	bind(flags.Lookup("log-file"), "log.file")
	bind(flags.Lookup("bundle"), "bundle.root")
	bind(flags.Lookup("driver"), "store.driver")
	bind(flags.Lookup("store"), "store.path")
	bind(flags.Lookup("prefix"), "store.prefix")
}
