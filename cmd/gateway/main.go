// Package main is the entry point for the gym gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/observability"
)

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	watch       bool
	showVersion bool
}

func main() {
	flags, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if flags.showVersion {
		printVersion(os.Stdout)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flags); err != nil {
		fmt.Fprintf(os.Stderr, "gateway: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags. Unset flags fall back to
// GATEWAY_* environment variables.
func parseFlags(fs *flag.FlagSet, args []string) (cliFlags, error) {
	var f cliFlags
	fs.StringVar(&f.configPath, "config", getEnvOrDefault("GATEWAY_CONFIG_PATH", ""),
		"Path to configuration file (built-in defaults when empty)")
	fs.StringVar(&f.logLevel, "log-level", getEnvOrDefault("GATEWAY_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error)")
	fs.StringVar(&f.logFormat, "log-format", getEnvOrDefault("GATEWAY_LOG_FORMAT", ""),
		"Log format (json, console)")
	fs.BoolVar(&f.watch, "watch", getEnvBool("GATEWAY_CONFIG_WATCH", false),
		"Reload routes, security and breakers when the configuration file changes")
	fs.BoolVar(&f.showVersion, "version", false, "Show version information")

	err := fs.Parse(args)
	return f, err
}

// printVersion prints version information.
func printVersion(w io.Writer) {
	_, _ = fmt.Fprintf(w, "gymgw version %s\n", version)
	_, _ = fmt.Fprintf(w, "  Build time: %s\n", buildTime)
	_, _ = fmt.Fprintf(w, "  Git commit: %s\n", gitCommit)
}

// loadConfig loads and validates the configuration. An empty path
// selects the built-in defaults.
func loadConfig(path string) (*config.GatewayConfig, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// logConfig merges the logging flags over the configured logging section.
func logConfig(flags cliFlags, cfg config.LoggingConfig) observability.LogConfig {
	lc := observability.DefaultLogConfig()
	if cfg.Level != "" {
		lc.Level = cfg.Level
	}
	if cfg.Format != "" {
		lc.Format = cfg.Format
	}
	if cfg.Output != "" {
		lc.Output = cfg.Output
	}
	if flags.logLevel != "" {
		lc.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		lc.Format = flags.logFormat
	}
	return lc
}

// run starts the gateway and blocks until ctx is cancelled.
func run(ctx context.Context, flags cliFlags) error {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(logConfig(flags, cfg.Spec.Observability.Logging))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	observability.SetGlobalLogger(logger)

	logger.Info("starting gymgw",
		observability.String("version", version),
		observability.String("config", flags.configPath),
		observability.String("name", cfg.Metadata.Name),
		observability.Int("routes", len(cfg.Spec.Routes)),
		observability.Int("services", len(cfg.Spec.Services)),
	)

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if err := app.gateway.Start(ctx); err != nil {
		app.close(context.Background())
		return fmt.Errorf("failed to start gateway: %w", err)
	}

	if flags.watch && flags.configPath != "" {
		stopWatch, err := watchConfig(ctx, flags.configPath, app, logger)
		if err != nil {
			logger.Error("failed to watch configuration file", observability.Error(err))
		} else {
			defer stopWatch()
		}
	}

	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		cfg.Spec.ShutdownTimeout.OrDefault(config.DefaultShutdownTimeout))
	defer cancel()

	if err := app.gateway.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("failed to stop gateway gracefully", observability.Error(err))
	}
	app.close(shutdownCtx)

	logger.Info("gateway stopped")
	return nil
}

// watchConfig reloads the pipeline whenever the configuration file
// changes. The returned func stops the watcher.
func watchConfig(
	ctx context.Context,
	path string,
	app *application,
	logger observability.Logger,
) (func(), error) {
	watcher, err := config.NewWatcher(path, app.reload, config.WithWatchLogger(logger))
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(ctx); err != nil {
		_ = watcher.Stop()
		return nil, err
	}
	return func() { _ = watcher.Stop() }, nil
}
