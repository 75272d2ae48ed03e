package dbus

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/cris2986/calendar-pulse/internal/listener"
)

const (
	// NotificationsInterface is the freedesktop notification interface name.
	NotificationsInterface = "org.freedesktop.Notifications"
)

// EventHandler receives each observed notification.
type EventHandler func(ev listener.Event)

// Monitor passively observes D-Bus notification traffic without claiming ownership,
// so it runs alongside whichever notification daemon the desktop uses.
type Monitor struct {
	conn   *dbus.Conn
	logger *slog.Logger
	now    func() time.Time

	onEvent EventHandler
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewMonitor creates a new notification monitor.
func NewMonitor(logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// SetEventHandler sets the callback for observed notifications.
// Must be called before Start.
func (m *Monitor) SetEventHandler(handler EventHandler) {
	m.onEvent = handler
}

// Start begins monitoring D-Bus for notification traffic.
// Monitoring needs a private connection: a monitor connection cannot send.
func (m *Monitor) Start() error {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	m.conn = conn

	rules := []string{
		"type='method_call',interface='" + NotificationsInterface + "',member='Notify'",
	}

	err = conn.BusObject().Call(
		"org.freedesktop.DBus.Monitoring.BecomeMonitor",
		0,
		rules,
		uint32(0),
	).Err
	if err != nil {
		// BecomeMonitor might not be available (older D-Bus versions)
		m.logger.Warn("BecomeMonitor not available, trying AddMatch", "error", err)
		return m.startWithAddMatch()
	}

	m.logger.Info("started D-Bus monitor using BecomeMonitor")
	m.run()
	return nil
}

// startWithAddMatch uses the older AddMatch API for eavesdropping.
func (m *Monitor) startWithAddMatch() error {
	matchRule := "type='method_call',interface='" + NotificationsInterface + "',member='Notify',eavesdrop='true'"

	err := m.conn.BusObject().Call(
		"org.freedesktop.DBus.AddMatch",
		0,
		matchRule,
	).Err
	if err != nil {
		return fmt.Errorf("failed to add match rule (eavesdrop may require permissions): %w", err)
	}

	m.logger.Info("started D-Bus monitor using AddMatch with eavesdrop")
	m.run()
	return nil
}

func (m *Monitor) run() {
	ch := make(chan *dbus.Message, 100)
	m.conn.Eavesdrop(ch)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.processMessages(ch)
	}()
}

// processMessages handles messages one at a time until the channel closes or
// the monitor stops.
func (m *Monitor) processMessages(ch <-chan *dbus.Message) {
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			m.handleMessage(msg)
		case <-m.done:
			return
		}
	}
}

// handleMessage parses a Notify method call and invokes the handler.
func (m *Monitor) handleMessage(msg *dbus.Message) {
	if msg.Type != dbus.TypeMethodCall {
		return
	}
	if iface, ok := msg.Headers[dbus.FieldInterface]; !ok || iface.Value() != NotificationsInterface {
		return
	}
	if member, ok := msg.Headers[dbus.FieldMember]; !ok || member.Value() != "Notify" {
		return
	}

	notification, err := parseNotify(msg.Body)
	if err != nil {
		m.logger.Warn("ignoring Notify call", "error", err)
		return
	}

	// The monitor sees the call as it happens, so capture time is post time.
	ev := notification.Event(m.now())
	m.logger.Debug("observed notification", "package", ev.PackageName, "summary", notification.Summary)

	if m.onEvent != nil {
		m.onEvent(ev)
	}
}

// Stop stops the monitor and closes its connection.
func (m *Monitor) Stop() error {
	select {
	case <-m.done:
		return nil
	default:
		close(m.done)
	}

	var err error
	if m.conn != nil {
		err = m.conn.Close()
	}
	m.wg.Wait()
	return err
}
