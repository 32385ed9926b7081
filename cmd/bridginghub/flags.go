package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/stage"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	Action      string
	ConfigPath  string
	WorkDir     string
	LogLevel    string
	LogFormat   string
	Verbose     bool
	Validate    bool
	MetricsFile string
	ShowVersion bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("BRIDGINGHUB_CONFIG", ""),
		"Path to configuration file (env: BRIDGINGHUB_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("BRIDGINGHUB_CONFIG", ""),
		"Path to configuration file (shorthand)")

	flag.StringVar(&cfg.WorkDir, "workdir",
		getEnv("BRIDGINGHUB_WORKDIR", ""),
		"Directory to change into before loading (env: BRIDGINGHUB_WORKDIR)")

	flag.StringVar(&cfg.WorkDir, "w",
		getEnv("BRIDGINGHUB_WORKDIR", ""),
		"Directory to change into before loading (shorthand)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("BRIDGINGHUB_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: BRIDGINGHUB_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("BRIDGINGHUB_LOG_FORMAT", "text"),
		"Log format: text, json (env: BRIDGINGHUB_LOG_FORMAT)")

	flag.BoolVar(&cfg.Verbose, "verbose", false, "Shorthand for -log-level=debug")
	flag.BoolVar(&cfg.Verbose, "v", false, "Shorthand for -log-level=debug")

	flag.BoolVar(&cfg.Validate, "validate", false,
		"Build the dispatch graph, then exit without moving records")

	flag.StringVar(&cfg.MetricsFile, "metrics-file",
		getEnv("BRIDGINGHUB_METRICS_FILE", ""),
		"Write a Prometheus textfile after the pass (env: BRIDGINGHUB_METRICS_FILE)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")

	flag.Usage = printUsage
	flag.Parse()

	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}
	cfg.Action = flag.Arg(0)

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	wrap := func(err error) error {
		return errors.WrapConfig(err, "CLI", "ParseFlags", "validate command line")
	}

	if cfg.Action == "" {
		return wrap(fmt.Errorf("%w: missing action, want one of %v",
			errors.ErrMissingConfig, stage.RunContexts()))
	}
	if flag.NArg() > 1 {
		return wrap(fmt.Errorf("%w: unexpected arguments after action: %v",
			errors.ErrInvalidConfig, flag.Args()[1:]))
	}
	if cfg.ConfigPath == "" {
		return wrap(fmt.Errorf("%w: no configuration file, set -config or BRIDGINGHUB_CONFIG",
			errors.ErrMissingConfig))
	}
	if !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return wrap(fmt.Errorf("%w: unknown log level %q", errors.ErrInvalidConfig, cfg.LogLevel))
	}
	if !contains([]string{"text", "json"}, cfg.LogFormat) {
		return wrap(fmt.Errorf("%w: unknown log format %q", errors.ErrInvalidConfig, cfg.LogFormat))
	}
	return nil
}

func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - measurement data bridging pipeline

Usage: %s [options] <action>

Actions: %s

Options:
`, appName, os.Args[0], strings.Join(stage.RunContexts(), ", "))
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # One bridge pass: collect, stage and deliver
  %s -c /etc/bridginghub/config.yaml bridge

  # Collect into the staging cache only
  %s -c config.yaml input

  # Deliver previously staged records
  %s -c config.yaml output

  # Promote staged records to archive and junk
  %s -c config.yaml -w /var/lib/bridginghub cleanup

  # Check a configuration without moving records
  %s -c config.yaml -validate bridge

Exit codes:
  0   pass complete
  2   configuration or usage failure
  98  pass failure

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
