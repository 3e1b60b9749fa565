package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/makeasinger/studio/internal/config"
	"github.com/makeasinger/studio/internal/logging"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "studio",
		Short:         "Song generation backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides LOG_LEVEL)")

	load := func() (*config.Config, zerolog.Logger, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.Server.LogLevel = logLevel
		}
		return cfg, logging.New(cfg.Server.LogLevel, cfg.IsDevelopment()), nil
	}

	root.AddCommand(
		newServeCmd(load),
		newGenerateCmd(load),
		newTokenCmd(load),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

type loader func() (*config.Config, zerolog.Logger, error)
