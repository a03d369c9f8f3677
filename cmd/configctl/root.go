package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/KevinKickass/AlarmConfigurator/internal/catalog"
	"github.com/KevinKickass/AlarmConfigurator/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "configctl",
	Short:         "Alarm configurator catalog and selection tooling",
	Long:          "configctl normalizes product catalogs and validates or prices add-on selections against the panel limits.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "server config file (defaults and ALARMCFG_* env when empty)")
	rootCmd.PersistentFlags().StringSlice("catalog", nil, "catalog files or directories (overrides catalog.search_paths)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("catalog", rootCmd.PersistentFlags().Lookup("catalog"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	viper.SetEnvPrefix("ALARMCFG")
	viper.AutomaticEnv()
}

// loadConfig reads the same configuration the server uses, so offline
// results match the deployed limits and prices.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if paths := viper.GetStringSlice("catalog"); len(paths) > 0 {
		cfg.Catalog.SearchPaths = paths
	}
	return cfg, nil
}

func newLogger() *zap.Logger {
	if !viper.GetBool("verbose") {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// loadProvider reads and normalizes the catalog once.
func loadProvider(cfg config.CatalogConfig, logger *zap.Logger) (*catalog.Provider, error) {
	opts, err := catalog.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	loader, err := catalog.NewLoader(cfg.SearchPaths, logger)
	if err != nil {
		return nil, err
	}

	provider := catalog.NewProvider(loader, catalog.NewNormalizer(opts, logger), logger)
	if _, err := provider.Reload(); err != nil {
		return nil, err
	}
	return provider, nil
}
