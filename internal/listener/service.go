// Package listener observes posted notifications, keeps those from
// allow-listed apps, and either forwards them live or queues them.
package listener

import (
	"fmt"
	"log/slog"

	"github.com/cris2986/calendar-pulse/internal/model"
)

// Queue is the persistent store records fall back to.
type Queue interface {
	Append(r model.Record) (int, error)
}

// Outcome describes what happened to one posted event.
type Outcome int

const (
	// OutcomeFiltered means the source app is not on the allow-list.
	OutcomeFiltered Outcome = iota
	// OutcomeEmpty means no body text could be extracted.
	OutcomeEmpty
	// OutcomeDelivered means the live callback accepted the record.
	OutcomeDelivered
	// OutcomeQueued means the record was appended to the queue.
	OutcomeQueued
	// OutcomeDropped means neither delivery nor queueing succeeded.
	OutcomeDropped
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeFiltered:
		return "filtered"
	case OutcomeEmpty:
		return "empty"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeQueued:
		return "queued"
	case OutcomeDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Service is the notification listener. It is the only writer of the queue.
type Service struct {
	registry *Registry
	queue    Queue
	logger   *slog.Logger
}

// NewService creates a Service. It is not visible through the registry until
// OnCreate is called.
func NewService(registry *Registry, queue Queue, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		registry: registry,
		queue:    queue,
		logger:   logger,
	}
}

// OnCreate publishes the service in the registry.
func (s *Service) OnCreate() {
	s.registry.setService(s)
	s.logger.Debug("notification service created")
}

// OnDestroy withdraws the service from the registry.
func (s *Service) OnDestroy() {
	s.registry.clearService(s)
	s.logger.Debug("notification service destroyed")
}

// OnListenerConnected is called when the OS starts delivering events.
func (s *Service) OnListenerConnected() {
	s.logger.Info("notification listener connected")
}

// OnListenerDisconnected is called when the OS stops delivering events.
func (s *Service) OnListenerDisconnected() {
	s.logger.Info("notification listener disconnected")
}

// OnNotificationRemoved is ignored.
func (s *Service) OnNotificationRemoved(Event) {}

// OnNotificationPosted handles one posted notification: it produces at most
// one record and either forwards it live or appends it to the queue.
func (s *Service) OnNotificationPosted(ev Event) Outcome {
	if !model.IsAllowed(ev.PackageName) {
		return OutcomeFiltered
	}

	record := model.Record{
		PackageName: ev.PackageName,
		Title:       ev.Title(),
		Text:        ev.Body(),
		Timestamp:   ev.PostTime,
	}
	if record.Text == "" {
		return OutcomeEmpty
	}

	s.logger.Debug("notification captured",
		"package", record.PackageName,
		"title", record.Title,
		"text", record.Text)

	if cb := s.registry.Callback(); cb != nil {
		if err := invoke(cb, record); err != nil {
			s.logger.Warn("callback did not deliver, queueing", "error", err)
		} else {
			s.logger.Debug("sent to callback successfully")
			return OutcomeDelivered
		}
	}

	size, err := s.queue.Append(record)
	if err != nil {
		s.logger.Error("failed to save to queue", "error", err)
		return OutcomeDropped
	}
	s.logger.Debug("saved to queue", "size", size)
	return OutcomeQueued
}

// invoke calls cb, converting a panic into an error.
func invoke(cb Callback, r model.Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("callback panicked: %v", p)
		}
	}()
	return cb(r)
}
