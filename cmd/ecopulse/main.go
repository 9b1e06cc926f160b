package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"ecopulse/internal/app"
	"ecopulse/internal/config"
	"ecopulse/internal/logging"
)

type options struct {
	Config   string `short:"c" long:"config" env:"ECOPULSE_CONFIG" description:"Path to YAML configuration file"`
	LogLevel string `long:"log-level" env:"LOG_LEVEL" description:"Override the configured log level"`
	DryRun   bool   `long:"dry-run" description:"Log what would be published instead of sending"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}

	cfg := config.Load(opts.Config)
	if opts.DryRun {
		cfg.DryRun = true
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.File)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, opts.Config, logger)
	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
