package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/cachesync/config"
	"github.com/kbukum/cachesync/version"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cachesync",
	Short: "Inspect and follow the offline POS cache",
	Long: `Open the offline cache with the configured storage provider, follow a
channel's change feed, search cached entities or wipe the cache.`,
	SilenceUsage: true,
	Version:      version.Get().String(),
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: search ./cachesync.yml, ./config/config.yml)")
	rootCmd.AddCommand(watchCmd, searchCmd, clearCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.AppConfig, error) {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	return config.Load(config.DefaultServiceName, opts...)
}
