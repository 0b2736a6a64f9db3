package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/hmirc/internal/app"
	"github.com/vovakirdan/hmirc/internal/config"
	"github.com/vovakirdan/hmirc/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		overrides  config.Config
	)

	cmd := &cobra.Command{
		Use:           "hmirc",
		Short:         "IRC gateway for the hackmud chat API",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootstrap := log.New(overrides.LogLevel, overrides.LogFormat)

			cfg, path, err := config.Load(bootstrap, configPath)
			if err != nil {
				return err
			}
			cfg.UpdateFrom(overrides)

			logger := log.New(cfg.LogLevel, cfg.LogFormat)
			logger.Info().Str("config", path).Str("listen", cfg.ListenAddr).Str("http", cfg.HTTPAddr).Msg("starting hmirc")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			if err := application.Run(ctx); err != nil {
				return fmt.Errorf("server exited with error: %w", err)
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to config.yaml (created with defaults when missing)")
	flags.StringVar(&overrides.ListenAddr, "listen", "", "IRC listen address")
	flags.StringVar(&overrides.HTTPAddr, "http-addr", "", "HTTP listen address for health, metrics and websocket")
	flags.StringVar(&overrides.APIBaseURL, "api", "", "remote chat API base URL")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&overrides.LogFormat, "log-format", "", "log format (console, json)")
	flags.DurationVar(&overrides.PollInterval, "poll-interval", 0, "interval between message polls")

	return cmd
}
