package dbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/cris2986/calendar-pulse/internal/bridge"
	"github.com/cris2986/calendar-pulse/internal/model"
)

const (
	// BridgeInterface is the interface exported by the bridge object.
	BridgeInterface = "io.github.cris2986.CalendarPulse.NotificationListener"
	// BridgePath is the bridge object path.
	BridgePath = "/io/github/cris2986/CalendarPulse"
	// BridgeBusName is the bus name to claim.
	BridgeBusName = "io.github.cris2986.CalendarPulse"
)

// ErrNotConnected is returned when emitting without a bus connection.
var ErrNotConnected = fmt.Errorf("not connected to D-Bus: %w", bridge.ErrNoConsumer)

const nameOwnerChanged = "org.freedesktop.DBus.NameOwnerChanged"

// BridgeServer exports the bridge operations on the session bus. Each method
// returns its result as a JSON string; live notifications are emitted as the
// notificationReceived signal carrying the JSON record.
//
// Signals are only emitted while at least one client has called Subscribe.
// A client is dropped when it calls Unsubscribe or leaves the bus.
type BridgeServer struct {
	mu      sync.Mutex
	conn    *dbus.Conn
	methods *bridgeMethods
	logger  *slog.Logger
	running bool
	signals chan *dbus.Signal
	done    chan struct{}

	consumersMu sync.Mutex
	consumers   map[string]struct{}
}

// NewBridgeServer creates a BridgeServer for controller.
func NewBridgeServer(controller *bridge.Controller, logger *slog.Logger) *BridgeServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &BridgeServer{
		logger:    logger,
		consumers: make(map[string]struct{}),
	}
	s.methods = &bridgeMethods{server: s, controller: controller, logger: logger}
	return s
}

// SetController sets the controller serving the exported methods.
// It must be called before Start.
func (s *BridgeServer) SetController(controller *bridge.Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods.controller = controller
}

// Start connects to the session bus, exports the bridge object and claims
// the bus name.
func (s *BridgeServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("bridge server already running")
	}
	if s.methods.controller == nil {
		return errors.New("bridge server has no controller")
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(s.methods, BridgePath, BridgeInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: BridgePath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    BridgeInterface,
				Methods: bridgeIntrospectMethods(),
				Signals: bridgeIntrospectSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), BridgePath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(BridgeBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", BridgeBusName)
	}

	if err := conn.AddMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		return fmt.Errorf("failed to watch bus clients: %w", err)
	}
	s.signals = make(chan *dbus.Signal, 16)
	s.done = make(chan struct{})
	conn.Signal(s.signals)
	go s.watchClients(s.signals, s.done)

	s.conn = conn
	s.running = true
	s.logger.Info("D-Bus bridge started", "interface", BridgeInterface, "path", BridgePath)
	return nil
}

// Stop releases the bus name.
func (s *BridgeServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	s.conn.RemoveSignal(s.signals)
	if err := s.conn.RemoveMatchSignal(
		dbus.WithMatchInterface("org.freedesktop.DBus"),
		dbus.WithMatchMember("NameOwnerChanged"),
	); err != nil {
		s.logger.Warn("failed to remove signal match", "error", err)
	}
	close(s.done)

	if _, err := s.conn.ReleaseName(BridgeBusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}
	// Don't close the connection as it's shared (SessionBus)
	s.conn = nil

	s.logger.Info("D-Bus bridge stopped")
	return nil
}

// Emit implements bridge.Emitter by emitting a signal named after event.
func (s *BridgeServer) Emit(event string, r model.Record) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}
	if s.Consumers() == 0 {
		return bridge.ErrNoConsumer
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := conn.Emit(BridgePath, BridgeInterface+"."+event, string(payload)); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", event, err)
	}

	s.logger.Debug("emitted signal", "signal", event)
	return nil
}

// Consumers returns the number of subscribed bus clients.
func (s *BridgeServer) Consumers() int {
	s.consumersMu.Lock()
	defer s.consumersMu.Unlock()
	return len(s.consumers)
}

func (s *BridgeServer) addConsumer(name string) {
	s.consumersMu.Lock()
	defer s.consumersMu.Unlock()
	s.consumers[name] = struct{}{}
	s.logger.Debug("bus client subscribed", "sender", name, "consumers", len(s.consumers))
}

func (s *BridgeServer) removeConsumer(name string) {
	s.consumersMu.Lock()
	defer s.consumersMu.Unlock()
	if _, ok := s.consumers[name]; !ok {
		return
	}
	delete(s.consumers, name)
	s.logger.Debug("bus client unsubscribed", "sender", name, "consumers", len(s.consumers))
}

func (s *BridgeServer) watchClients(signals <-chan *dbus.Signal, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			s.handleSignal(sig)
		}
	}
}

// handleSignal drops a subscribed client once its unique name loses its owner.
func (s *BridgeServer) handleSignal(sig *dbus.Signal) {
	if sig == nil || sig.Name != nameOwnerChanged || len(sig.Body) != 3 {
		return
	}
	name, ok := sig.Body[0].(string)
	if !ok {
		return
	}
	if newOwner, _ := sig.Body[2].(string); newOwner == "" {
		s.removeConsumer(name)
	}
}

// bridgeMethods holds only the exported D-Bus methods.
type bridgeMethods struct {
	server     *BridgeServer
	controller *bridge.Controller
	logger     *slog.Logger
}

// Subscribe implements Subscribe(). The caller receives notificationReceived
// signals until it unsubscribes or disconnects.
func (b *bridgeMethods) Subscribe(sender dbus.Sender) *dbus.Error {
	b.server.addConsumer(string(sender))
	return nil
}

// Unsubscribe implements Unsubscribe(). Later notifications are queued unless
// another consumer is connected.
func (b *bridgeMethods) Unsubscribe(sender dbus.Sender) *dbus.Error {
	b.server.removeConsumer(string(sender))
	return nil
}

func (b *bridgeMethods) reply(v any) (string, *dbus.Error) {
	data, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("failed to encode reply", "error", err)
		return "", dbus.MakeFailedError(err)
	}
	return string(data), nil
}

// IsPermissionGranted implements IsPermissionGranted() -> s
func (b *bridgeMethods) IsPermissionGranted() (string, *dbus.Error) {
	return b.reply(b.controller.IsPermissionGranted())
}

// RequestPermission implements RequestPermission() -> s
func (b *bridgeMethods) RequestPermission() (string, *dbus.Error) {
	return b.reply(b.controller.RequestPermission(context.Background()))
}

// StartListening implements StartListening() -> s
func (b *bridgeMethods) StartListening() (string, *dbus.Error) {
	return b.reply(b.controller.StartListening())
}

// StopListening implements StopListening() -> s
func (b *bridgeMethods) StopListening() (string, *dbus.Error) {
	return b.reply(b.controller.StopListening())
}

// GetQueuedNotifications implements GetQueuedNotifications() -> s
func (b *bridgeMethods) GetQueuedNotifications() (string, *dbus.Error) {
	return b.reply(b.controller.GetQueuedNotifications())
}

// GetQueueSize implements GetQueueSize() -> s
func (b *bridgeMethods) GetQueueSize() (string, *dbus.Error) {
	return b.reply(b.controller.GetQueueSize())
}

// bridgeIntrospectMethods returns the D-Bus method introspection data.
func bridgeIntrospectMethods() []introspect.Method {
	names := []string{
		"IsPermissionGranted",
		"RequestPermission",
		"StartListening",
		"StopListening",
		"GetQueuedNotifications",
		"GetQueueSize",
	}
	methods := make([]introspect.Method, 0, len(names)+2)
	for _, name := range names {
		methods = append(methods, introspect.Method{
			Name: name,
			Args: []introspect.Arg{
				{Name: "result", Type: "s", Direction: "out"},
			},
		})
	}
	return append(methods,
		introspect.Method{Name: "Subscribe"},
		introspect.Method{Name: "Unsubscribe"},
	)
}

// bridgeIntrospectSignals returns the D-Bus signal introspection data.
func bridgeIntrospectSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: bridge.EventNotificationReceived,
			Args: []introspect.Arg{
				{Name: "notification", Type: "s"},
			},
		},
	}
}
