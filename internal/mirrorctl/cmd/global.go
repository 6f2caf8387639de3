package cmd

import (
	"fmt"
	"os"

	"github.com/kiosk404/mirror/internal/mirror/options"
	"github.com/kiosk404/mirror/pkg/logger"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var globalConfigFile string

// addGlobalFlags exposes the server options mirrorctl shares with mirror:
// where the store lives and which plugins are loaded.
func addGlobalFlags(flags *pflag.FlagSet, opts *options.Options) {
	flags.StringVarP(&globalConfigFile, "config", "c", "",
		"Read the mirror server configuration from FILE (default ./mirror.yaml if present).")
	opts.StoreOptions.AddFlags(flags)
	opts.PluginOptions.AddFlags(flags)
	opts.LogOptions.Level = "warn"
	opts.LogOptions.AddFlags(flags)
}

// loadConfig reads the server configuration file, if any, into opts.
// Flags given on the command line take precedence.
func loadConfig(flags *pflag.FlagSet, opts *options.Options) error {
	v := viper.New()
	v.SetEnvPrefix("MIRROR")
	v.AutomaticEnv()

	if globalConfigFile != "" {
		v.SetConfigFile(globalConfigFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("mirror")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || globalConfigFile != "" {
			return fmt.Errorf("read configuration file: %w", err)
		}
	}
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	if err := v.Unmarshal(opts); err != nil {
		return err
	}
	if err := opts.Complete(); err != nil {
		return err
	}
	if errs := opts.Validate(); len(errs) > 0 {
		return fmt.Errorf("invalid options: %v", errs)
	}

	logger.SetOutput(os.Stderr)
	return opts.LogOptions.Apply()
}
