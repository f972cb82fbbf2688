package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/paperstock/config"
)

var rootCmd = &cobra.Command{
	Use:   "paperstock",
	Short: "A multi-user paper-trading engine with a live quote cache",
	Long: `Paperstock is a stock trading simulator engine written in Go.

It provides:
  - A per-account ledger with atomic market-order fills and an immutable trade log
  - A quote cache with request coalescing and stale-if-error fallback
  - A polling coordinator that keeps watched and held symbols warm
  - Per-account watchlists and a curated top-symbols board
  - SQLite persistence for accounts, holdings, trades and watchlists`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the config file when given, otherwise returns defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
