package main

import (
	"github.com/optica/backend/internal/infrastructure/config"
	"github.com/optica/backend/internal/infrastructure/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

// cli holds what every subcommand needs once the root command has run
type cli struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "facturactl",
		Short: "Operator tools for the invoicing backend",
		Long: `facturactl runs maintenance tasks against the invoicing database:
regenerating missing PDF receipts, exporting invoices to Excel and issuing
access tokens for scripts.

Configuration is read the same way as the API server: config.toml plus
OPTICA_* environment variables, optionally loaded from a .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if c.log != nil {
				_ = logger.Sync(c.log)
			}
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to a config.toml (default: ./config.toml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newReceiptsCmd(c),
		newExportCmd(c),
		newTokenCmd(c),
	)
	return root
}

func (c *cli) init() error {
	var err error
	if c.configPath != "" {
		c.cfg, err = config.LoadFile(c.configPath)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	level := c.cfg.Log.Level
	if c.logLevel != "" {
		level = c.logLevel
	}
	c.log, err = logger.New(&logger.Config{
		Level:      level,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	return err
}
