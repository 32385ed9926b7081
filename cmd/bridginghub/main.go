// Package main implements the bridginghub command: a single-pass launcher
// for the measurement bridging pipeline. Each invocation builds the
// dispatch graph for one action and runs exactly one pass; scheduling
// repeated passes belongs to cron or a systemd timer.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/engine"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/metric"
	"github.com/ategus/bridginghub/stage"
	"github.com/ategus/bridginghub/stageregistry"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "bridginghub"
)

// Exit codes shared with the launcher's operational tooling.
const (
	exitConfig = 2
	exitPass   = 98
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(exitConfig)
		}
	}()

	if err := run(); err != nil {
		code := exitPass
		if errors.IsFatal(err) {
			code = exitConfig
		}
		slog.Error("run failed", "error", err, "exit_code", code)
		os.Exit(code)
	}
}

func run() error {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	if err := validateFlags(cliCfg); err != nil {
		return err
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	action, err := stage.ParseRunContext(cliCfg.Action)
	if err != nil {
		return err
	}

	if cliCfg.WorkDir != "" {
		if err := os.Chdir(cliCfg.WorkDir); err != nil {
			return errors.WrapConfig(err, "CLI", "Run", "change working directory")
		}
	}

	logger.Info("starting bridginghub",
		"version", Version,
		"action", string(action),
		"config", cliCfg.ConfigPath)

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return err
	}

	metrics := metric.NewRegistry()
	deps := stage.Dependencies{Logger: logger, Metrics: metrics}

	registry := stage.NewRegistry(deps)
	if err := stageregistry.Register(registry); err != nil {
		return err
	}

	eng := engine.New(cfg, registry, action, deps)
	if err := eng.Build(); err != nil {
		return err
	}

	if cliCfg.Validate {
		logger.Info("configuration is valid", "flow", eng.Flow())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := eng.Run(ctx)
	writeMetrics(logger, metrics, cliCfg.MetricsFile)
	return runErr
}

// writeMetrics dumps the pass counters for node_exporter's textfile
// collector. The pass outcome is already decided, so a write failure only
// warns.
func writeMetrics(logger *slog.Logger, metrics *metric.Registry, path string) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		logger.Warn("metrics textfile not written", "path", path, "error", err)
	}
}
