package app

import (
	"fmt"
	"os"

	"pcmon/internal/config"
	"pcmon/internal/database"
	"pcmon/internal/monitor"
)

// App is the application layer between the CLI and the monitor service.
// It constructs all dependencies from config and manages the store and log
// file lifecycle on Close.
type App struct {
	cfg     *config.Config
	store   monitor.Store
	service *monitor.Service
	logger  monitor.Logger
	logFile *os.File
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Serve", "Sweep");
// it tags every log line the process writes. The caller must call Close
// when done.
func NewApp(cfg *config.Config, operation string) (*App, error) {
	slogger, logFile, err := newLogger(cfg.LogDir, operation)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	store, err := database.NewStoreFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating store: %w", err)
	}

	if store.Path() == ":memory:" {
		// An in-memory store is always fresh; build its schema in place.
		if err := store.Migrate(); err != nil {
			store.Close()
			logFile.Close()
			return nil, fmt.Errorf("migrating in-memory store: %w", err)
		}
	} else if err := store.CheckMigrations(); err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	return &App{
		cfg:     cfg,
		store:   store,
		service: monitor.NewService(store, logger, monitor.RealClock{}),
		logger:  logger,
		logFile: logFile,
	}, nil
}

// Service returns the wired monitor service.
func (a *App) Service() *monitor.Service { return a.service }

// Logger returns the process logger.
func (a *App) Logger() monitor.Logger { return a.logger }

// Config returns the config the app was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Close releases the store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
