// Package commands holds the billigst CLI
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/Glx28/billigst-mat/config"
	"github.com/Glx28/billigst-mat/internal/app"
	"github.com/Glx28/billigst-mat/internal/infrastructure/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "billigst",
	Short:         "billigst tracks grocery prices and reports new best prices per product group.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default: search ., ./config, /etc/billigst)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level")
}

// ExecuteContext runs the CLI and exits non-zero on failure
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the application
func setup(cmd *cobra.Command, opts app.Options) (*app.App, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	log := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "billigst",
		Writer:  cmd.ErrOrStderr(),
	})

	return app.New(cfg, log, opts)
}
