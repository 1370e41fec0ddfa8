package main

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bitfsorg/gatherfi-go/config"
	"github.com/bitfsorg/gatherfi-go/engine"
	"github.com/bitfsorg/gatherfi-go/ledger"
	"github.com/bitfsorg/gatherfi-go/logging"
	"github.com/bitfsorg/gatherfi-go/transfer"
)

var rootCmd = &cobra.Command{
	Use:           "gatherfi",
	Short:         "gatherfi inspects and audits an event fund ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var dataDir, configFile = "", ""

func init() {
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(contributionCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", config.DefaultDataDir(), "custom data directory location")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default <data-dir>/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the config file, falling back to defaults plus
// environment overrides when none exists. An explicit --data-dir wins
// over the file.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := configFile
	if path == "" {
		path = config.ConfigPath(dataDir)
	}
	cfg, err := config.LoadConfig(path)
	if errors.Is(err, config.ErrConfigNotFound) {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return config.Config{}, err
	}
	if f := cmd.Flag("data-dir"); (f != nil && f.Changed) || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openEngine opens the ledger named by the effective config. The returned
// function releases the store and log file.
func openEngine(cmd *cobra.Command) (*engine.Engine, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	params, err := engine.ParamsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	l, logFile, err := logging.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	store, err := ledger.OpenBoltStore(cfg.ResolvedDBPath())
	if err != nil {
		_ = logFile.Close()
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	closeAll := func() {
		closeQuietly(l, store)
		closeQuietly(l, logFile)
	}
	return engine.New(store, transfer.NewBank(), params, engine.WithLogger(l)), closeAll, nil
}

func closeQuietly(l *logrus.Logger, c io.Closer) {
	if err := c.Close(); err != nil {
		l.WithError(err).Warn("close failed")
	}
}
