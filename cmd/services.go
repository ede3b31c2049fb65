package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/xvierd/branchbar/internal/adapters/desktop"
	"github.com/xvierd/branchbar/internal/adapters/git"
	"github.com/xvierd/branchbar/internal/adapters/notification"
	"github.com/xvierd/branchbar/internal/adapters/storage"
	"github.com/xvierd/branchbar/internal/config"
	"github.com/xvierd/branchbar/internal/logging"
	"github.com/xvierd/branchbar/internal/ports"
	"github.com/xvierd/branchbar/internal/services"
)

// appDeps groups all service-layer dependencies initialized at startup.
type appDeps struct {
	config      *config.Config
	logs        *logging.Manager
	log         *logging.ScopedLogger
	storage     ports.Storage
	runner      ports.CommandRunner
	resolver    ports.RepositoryResolver
	coordinator *services.Coordinator
	notifier    *notification.Notifier
	autostart   ports.Autostart
	opener      ports.Opener
}

// app holds all initialized service dependencies.
// Populated by initializeServices() and accessible to all commands.
var app appDeps

// initializeServices sets up all the required services and adapters.
func initializeServices() error {
	// Load configuration
	var err error
	if configPath != "" {
		app.config, err = config.LoadFrom(configPath)
	} else {
		app.config, err = config.Load()
	}
	if err != nil {
		return err
	}

	// Logging goes to a file; the status bar owns the terminal
	app.logs, err = logging.NewManager(logging.Config{
		FilePath:  config.GetLogPath(app.config),
		MaxSizeMB: app.config.Logging.MaxSizeMB,
		Level:     app.config.Logging.Level,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	app.log = app.logs.For("cli")

	// Initialize notifier
	app.notifier = notification.New(&app.config.Notifications)

	// Initialize storage
	dbPath := config.GetDBPath(app.config)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	app.storage, err = storage.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	// Initialize git adapters
	app.runner = git.NewRunner(app.config.Git.Binary, time.Duration(app.config.Refresh.CommandTimeout), app.logs.For("git"))
	app.resolver = git.NewResolver(app.runner)

	app.coordinator = newCoordinator(app.storage)

	exe, err := os.Executable()
	if err != nil {
		exe = "branchbar"
	}
	app.autostart = desktop.NewAutostart(exe)
	app.opener = desktop.NewOpener()

	return nil
}

// newCoordinator builds a coordinator over store with the configured timing.
func newCoordinator(store ports.Storage) *services.Coordinator {
	return services.NewCoordinator(app.resolver, store, services.CoordinatorConfig{
		Interval: time.Duration(app.config.Refresh.Interval),
		MaxWidth: app.config.Display.MaxWidth,
	}, app.logs.For("coordinator"))
}

// cleanupServices closes all resources.
func cleanupServices() error {
	if app.coordinator != nil {
		app.coordinator.Stop()
	}
	var err error
	if app.storage != nil {
		err = app.storage.Close()
	}
	if app.logs != nil {
		_ = app.logs.Close()
	}
	return err
}

// settleTimeout bounds how long one-shot commands wait for a resolution.
func settleTimeout() time.Duration {
	timeout := time.Duration(app.config.Refresh.CommandTimeout)
	if timeout <= 0 {
		return 30 * time.Second
	}
	return 2*timeout + time.Second
}

// setupSignalHandler sets up a context that cancels on interrupt signals.
func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	return ctx
}
