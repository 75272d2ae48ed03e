package main

import (
	"fmt"
	"log/slog"

	"github.com/cris2986/calendar-pulse/internal/bridge"
	"github.com/cris2986/calendar-pulse/internal/config"
	"github.com/cris2986/calendar-pulse/internal/listener"
	"github.com/cris2986/calendar-pulse/internal/settings"
	"github.com/cris2986/calendar-pulse/internal/store"
)

// storePath resolves the configured store path, falling back to the
// backend's default location under the data directory.
func storePath(c *config.Config) (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	switch c.Store.Backend {
	case config.StoreBackendSQLite:
		return store.DatabasePath()
	default:
		return store.QueuePath()
	}
}

// openStore opens the key-value store selected by the configuration.
func openStore(c *config.Config) (store.KV, error) {
	switch c.Store.Backend {
	case config.StoreBackendMemory:
		logger.Debug("using in-memory queue store; queued notifications are lost on exit")
		return store.NewMemoryKV(), nil
	case config.StoreBackendSQLite:
		path, err := storePath(c)
		if err != nil {
			return nil, err
		}
		logger.Debug("using sqlite queue store", "path", path)
		return store.NewSQLiteKV(path)
	case config.StoreBackendFile:
		path, err := storePath(c)
		if err != nil {
			return nil, err
		}
		logger.Debug("using file queue store", "path", path)
		return store.NewFileKV(path, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
}

// settingsReader returns the source of the enabled-listeners setting.
func settingsReader(c *config.Config) settings.Reader {
	if c.Settings.EnabledListeners != "" {
		return settings.Static(c.Settings.EnabledListeners)
	}
	return settings.File{Path: c.Settings.EnabledListenersFile}
}

// settingsLauncher returns the launcher for the listener settings screen.
func settingsLauncher(c *config.Config, log *slog.Logger) settings.Launcher {
	if len(c.Settings.OpenCommand) == 0 {
		return settings.Noop{}
	}
	return settings.Command{Args: c.Settings.OpenCommand, Logger: log}
}

// newController wires a bridge controller over the shared queue.
func newController(c *config.Config, q *store.Queue, registry *listener.Registry, emitter bridge.Emitter, log *slog.Logger) *bridge.Controller {
	return bridge.NewController(bridge.Options{
		PackageName: c.App.PackageName,
		Settings:    settingsReader(c),
		Launcher:    settingsLauncher(c, log),
		Queue:       q,
		Registry:    registry,
		Emitter:     emitter,
		Logger:      log,
	})
}
