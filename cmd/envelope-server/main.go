// Package main is the entry point for the envelope fixture server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/vyrodovalexey/avaenvelope/internal/config"
	"github.com/vyrodovalexey/avaenvelope/internal/observability"
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
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	configPath, err := config.ResolveConfigPath(flags.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve configuration: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(flags, cfg.Logging)
	defer func() { _ = logger.Sync() }()

	validateConfig(cfg, configPath, logger)

	app, err := initApplication(cfg, logger)
	if err != nil {
		fatalWithSync(logger, "failed to initialize application", observability.Error(err))
	}

	run(app, configPath, logger)
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("ENVELOPE_CONFIG_PATH", "configs/envelope.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("ENVELOPE_LOG_LEVEL", ""),
		"Log level (debug, info, warn, error); overrides the configuration")
	logFormat := flag.String("log-format", getEnvOrDefault("ENVELOPE_LOG_FORMAT", ""),
		"Log format (json, console); overrides the configuration")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		showVersion: *showVersion,
	}
}

// printVersion prints version information.
func printVersion() {
	fmt.Printf("envelope-server version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// logConfig merges the logging section of the configuration with the
// command line overrides.
func logConfig(flags cliFlags, cfg config.LoggingConfig) observability.LogConfig {
	logCfg := observability.LogConfig{
		Level:  cfg.Level,
		Format: cfg.Format,
		Output: cfg.Output,
	}
	if flags.logLevel != "" {
		logCfg.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		logCfg.Format = flags.logFormat
	}
	return logCfg
}

// initLogger initializes the logger.
func initLogger(flags cliFlags, cfg config.LoggingConfig) observability.Logger {
	logger, err := observability.NewLogger(logConfig(flags, cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// validateConfig validates the loaded configuration.
func validateConfig(cfg *config.Config, configPath string, logger observability.Logger) {
	logger.Info("starting envelope-server",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	if err := config.ValidateConfig(cfg); err != nil {
		fatalWithSync(logger, "invalid configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.Int("routes", len(cfg.Routes)),
		observability.String("casing", cfg.Response.Casing),
		observability.Bool("metrics", cfg.Metrics.Enabled),
		observability.Bool("tracing", cfg.Tracing.Enabled),
	)
}

// fatalWithSync flushes the logger before the fatal exit.
func fatalWithSync(logger observability.Logger, msg string, fields ...observability.Field) {
	_ = logger.Sync()
	logger.Fatal(msg, fields...)
}
