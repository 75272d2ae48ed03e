// Package bridge exposes the request/response operations the web layer calls
// and re-emits live notifications to it as events.
package bridge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cris2986/calendar-pulse/internal/listener"
	"github.com/cris2986/calendar-pulse/internal/model"
	"github.com/cris2986/calendar-pulse/internal/settings"
)

// EventNotificationReceived is the name of the live notification event.
const EventNotificationReceived = "notificationReceived"

// ErrPermissionNotGranted is the message returned by StartListening when the
// listener has not been enabled.
const ErrPermissionNotGranted = "Notification access not granted. Please enable it in settings."

// Queue is the subset of the persistent queue the bridge reads.
type Queue interface {
	Drain() ([]model.Record, error)
	Size() (int, error)
}

// PermissionStatus is returned by IsPermissionGranted.
type PermissionStatus struct {
	Granted bool `json:"granted" yaml:"granted"`
}

// PermissionRequest is returned by RequestPermission.
type PermissionRequest struct {
	Opened bool `json:"opened" yaml:"opened"`
}

// StartResult is returned by StartListening.
type StartResult struct {
	Started bool   `json:"started" yaml:"started"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// StopResult is returned by StopListening.
type StopResult struct {
	Stopped bool `json:"stopped" yaml:"stopped"`
}

// QueuedNotifications is returned by GetQueuedNotifications.
type QueuedNotifications struct {
	Notifications []model.Record `json:"notifications" yaml:"notifications"`
	Count         int            `json:"count" yaml:"count"`
	Error         string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// QueueSize is returned by GetQueueSize.
type QueueSize struct {
	Size int `json:"size" yaml:"size"`
}

// Options configures a Controller.
type Options struct {
	// PackageName is this application's own package identifier.
	PackageName string
	Settings    settings.Reader
	Launcher    settings.Launcher
	Queue       Queue
	Registry    *listener.Registry
	Emitter     Emitter
	Logger      *slog.Logger
}

// Controller is the web-facing facade. It keeps no state of its own.
type Controller struct {
	packageName string
	settings    settings.Reader
	launcher    settings.Launcher
	queue       Queue
	registry    *listener.Registry
	emitter     Emitter
	logger      *slog.Logger
}

// NewController creates a Controller.
func NewController(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = settings.Noop{}
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = MultiEmitter(nil)
	}
	return &Controller{
		packageName: opts.PackageName,
		settings:    opts.Settings,
		launcher:    launcher,
		queue:       opts.Queue,
		registry:    opts.Registry,
		emitter:     emitter,
		logger:      logger,
	}
}

// Load registers the controller as the live consumer of the listener service.
// A notification that no transport subscriber receives is reported back as
// undelivered so the service queues it.
func (c *Controller) Load() {
	c.registry.SetCallback(func(r model.Record) error {
		c.logger.Debug("callback received", "title", r.Title, "text", r.Text)
		return c.NotifyNotificationReceived(r)
	})
	c.logger.Debug("notification bridge loaded")
}

// Unload withdraws the live consumer; later notifications are queued.
func (c *Controller) Unload() {
	c.registry.ClearCallback()
	c.logger.Debug("notification bridge unloaded")
}

// IsPermissionGranted reports whether this application is an enabled
// notification listener.
func (c *Controller) IsPermissionGranted() PermissionStatus {
	granted := c.isNotificationServiceEnabled()
	c.logger.Debug("isPermissionGranted", "granted", granted)
	return PermissionStatus{Granted: granted}
}

// RequestPermission opens the listener settings screen when access is not yet
// granted. It never waits for the user's decision.
func (c *Controller) RequestPermission(ctx context.Context) PermissionRequest {
	c.logger.Debug("requestPermission called")
	if !c.isNotificationServiceEnabled() {
		if err := c.launcher.OpenListenerSettings(ctx); err != nil {
			c.logger.Warn("failed to open listener settings", "error", err)
		}
	}
	return PermissionRequest{Opened: true}
}

// StartListening reports whether notifications can be captured. Listener
// activation itself is managed by the OS.
func (c *Controller) StartListening() StartResult {
	granted := c.isNotificationServiceEnabled()
	c.logger.Debug("startListening called", "granted", granted)
	res := StartResult{Started: granted}
	if !granted {
		res.Error = ErrPermissionNotGranted
	}
	return res
}

// StopListening always succeeds and does not unregister the OS listener.
func (c *Controller) StopListening() StopResult {
	c.logger.Debug("stopListening called")
	return StopResult{Stopped: true}
}

// GetQueuedNotifications returns the queued notifications and clears the queue.
func (c *Controller) GetQueuedNotifications() QueuedNotifications {
	c.logger.Debug("getQueuedNotifications called")

	records, err := c.queue.Drain()
	if err != nil {
		c.logger.Error("error getting queued notifications", "error", err)
		return QueuedNotifications{
			Notifications: []model.Record{},
			Count:         0,
			Error:         err.Error(),
		}
	}

	c.logger.Debug("returning queued notifications", "count", len(records))
	return QueuedNotifications{
		Notifications: records,
		Count:         len(records),
	}
}

// GetQueueSize returns the number of queued notifications without clearing.
func (c *Controller) GetQueueSize() QueueSize {
	size, err := c.queue.Size()
	if err != nil {
		c.logger.Warn("failed to read queue size", "error", err)
		size = 0
	}
	c.logger.Debug("queue size", "size", size)
	return QueueSize{Size: size}
}

// NotifyNotificationReceived emits r to the web layer. It returns an error
// when no consumer received the event.
func (c *Controller) NotifyNotificationReceived(r model.Record) error {
	c.logger.Debug("notifying web layer", "title", r.Title, "text", r.Text)
	err := c.emitter.Emit(EventNotificationReceived, r)
	switch {
	case err == nil:
	case errors.Is(err, ErrNoConsumer):
		c.logger.Debug("no live consumer", "event", EventNotificationReceived)
	default:
		c.logger.Warn("failed to emit event", "event", EventNotificationReceived, "error", err)
	}
	return err
}

func (c *Controller) isNotificationServiceEnabled() bool {
	if c.settings == nil {
		return false
	}
	flat, err := c.settings.EnabledListeners()
	if err != nil {
		c.logger.Warn("failed to read enabled listeners", "error", err)
		return false
	}
	return settings.IsEnabled(flat, c.packageName)
}
