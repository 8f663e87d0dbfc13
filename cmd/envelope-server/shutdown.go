package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vyrodovalexey/avaenvelope/internal/config"
	"github.com/vyrodovalexey/avaenvelope/internal/health"
	"github.com/vyrodovalexey/avaenvelope/internal/observability"
)

// run serves until a shutdown signal arrives or the server fails.
func run(app *application, configPath string, logger observability.Logger) {
	ctx := context.Background()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start(ctx)
	}()

	watcher := startConfigWatcher(app, configPath, logger)
	app.health.RegisterCheck("config_watcher", watcherCheck(watcher))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", observability.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			logger.Error("server stopped unexpectedly", observability.Error(err))
		}
	}

	shutdown(app, watcher, logger)
}

// startConfigWatcher starts the configuration watcher. The server keeps
// running without hot reload when the watcher cannot start.
func startConfigWatcher(app *application, configPath string, logger observability.Logger) *config.Watcher {
	watcher, err := config.NewWatcher(configPath, app.reload,
		config.WithLogger(logger),
		config.WithErrorCallback(func(err error) {
			logger.Error("failed to reload configuration", observability.Error(err))
		}),
	)
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
		_ = watcher.Stop()
		return nil
	}

	return watcher
}

// watcherCheck reports a degraded service when hot reload is unavailable.
func watcherCheck(watcher *config.Watcher) health.CheckFunc {
	return func() health.Check {
		if watcher == nil {
			return health.Check{Status: health.StatusDegraded, Message: "configuration hot reload disabled"}
		}
		return health.Check{Status: health.StatusHealthy}
	}
}

// shutdown stops all components within the configured shutdown timeout.
func shutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout.Duration())
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := app.server.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop server gracefully", observability.Error(err))
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("envelope-server stopped")
}
