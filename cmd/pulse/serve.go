package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cris2986/calendar-pulse/internal/bridge"
	"github.com/cris2986/calendar-pulse/internal/dbus"
	"github.com/cris2986/calendar-pulse/internal/httpapi"
	"github.com/cris2986/calendar-pulse/internal/listener"
)

var serveOpts struct {
	httpAddr  string
	noHTTP    bool
	noMonitor bool
	noBridge  bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the notification bridge daemon",
	Long: `Run the notification bridge daemon.

The daemon passively monitors the session bus for notifications, delivers
allow-listed ones live to connected consumers and queues them otherwise.

A consumer is connected while it holds a D-Bus subscription (Subscribe on
io.github.cris2986.CalendarPulse) or an open HTTP event stream:

  GET  /permission           permission status
  POST /permission/request   open the listener settings screen
  POST /listening/start      check access before listening
  POST /listening/stop       stop listening
  POST /queue/drain          return and clear queued notifications
  GET  /queue/size           number of queued notifications
  GET  /events               live notificationReceived events (SSE)`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveOpts.httpAddr, "http-addr", "",
		"HTTP listen address (overrides http.addr)")
	serveCmd.Flags().BoolVar(&serveOpts.noHTTP, "no-http", false,
		"Disable the HTTP bridge")
	serveCmd.Flags().BoolVar(&serveOpts.noMonitor, "no-monitor", false,
		"Do not capture notifications from the session bus")
	serveCmd.Flags().BoolVar(&serveOpts.noBridge, "no-dbus-bridge", false,
		"Do not export the D-Bus bridge object")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpEnabled := cfg.HTTP.Enabled && !serveOpts.noHTTP
	httpAddr := cfg.HTTP.Addr
	if serveOpts.httpAddr != "" {
		httpAddr = serveOpts.httpAddr
	}

	logger.Info("starting calendar-pulse bridge", "version", version, "store", cfg.Store.Backend)

	registry := listener.NewRegistry(logger)
	service := listener.NewService(registry, queue, logger)
	service.OnCreate()
	defer service.OnDestroy()

	var emitters bridge.MultiEmitter

	// D-Bus bridge object and signal
	var bridgeServer *dbus.BridgeServer
	if cfg.DBus.Bridge && !serveOpts.noBridge {
		bridgeServer = dbus.NewBridgeServer(nil, logger)
		emitters = append(emitters, bridgeServer)
	}

	// HTTP event stream
	var hub *httpapi.Hub
	if httpEnabled {
		hub = httpapi.NewHub(logger)
		emitters = append(emitters, hub)
	}

	controller := newController(cfg, queue, registry, emitters, logger)

	if bridgeServer != nil {
		bridgeServer.SetController(controller)
		if err := bridgeServer.Start(); err != nil {
			return fmt.Errorf("failed to start D-Bus bridge: %w", err)
		}
		defer func() {
			if err := bridgeServer.Stop(); err != nil {
				logger.Warn("error stopping D-Bus bridge", "error", err)
			}
		}()
	}

	var httpServer *httpapi.Server
	if httpEnabled {
		httpServer = httpapi.NewServer(httpAddr, controller, hub, logger)
		if err := httpServer.Start(); err != nil {
			return err
		}
	}

	controller.Load()
	defer controller.Unload()

	if cfg.DBus.Monitor && !serveOpts.noMonitor {
		monitor := dbus.NewMonitor(logger)
		monitor.SetEventHandler(func(ev listener.Event) {
			outcome := service.OnNotificationPosted(ev)
			logger.Debug("notification processed", "package", ev.PackageName, "outcome", outcome)
		})
		if err := monitor.Start(); err != nil {
			return fmt.Errorf("failed to start D-Bus monitor: %w", err)
		}
		service.OnListenerConnected()
		defer func() {
			service.OnListenerDisconnected()
			if err := monitor.Stop(); err != nil {
				logger.Warn("error stopping monitor", "error", err)
			}
		}()
	}

	if status := controller.IsPermissionGranted(); !status.Granted {
		logger.Warn("notification access not granted; run 'pulse permission request'",
			"package", cfg.App.PackageName)
	}

	logger.Info("calendar-pulse bridge ready")

	<-ctx.Done()
	logger.Info("received signal, shutting down")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error stopping HTTP server", "error", err)
		}
	}

	return nil
}
