package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/burugo/ante/config"
)

var (
	configPath string
	cfg        *config.Config

	closeLogs = func() {}
)

var rootCmd = &cobra.Command{
	Use:           "ante",
	Short:         "Tenant-scoped content service for the ANTE back office",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		logger, cleanup, err := newLogger(cfg.Log)
		if err != nil {
			return err
		}
		closeLogs = cleanup
		slog.SetDefault(logger)
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		closeLogs()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default ./ante.yaml)")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
