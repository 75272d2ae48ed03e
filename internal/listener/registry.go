package listener

import (
	"log/slog"
	"sync"

	"github.com/cris2986/calendar-pulse/internal/model"
)

// Callback receives records forwarded live. Returning an error (or panicking)
// means the record was not delivered.
type Callback func(model.Record) error

// Registry links the bridge and whichever listener service is alive.
// It holds at most one callback and at most one service reference;
// each Set replaces the previous value.
type Registry struct {
	mu       sync.RWMutex
	callback Callback
	service  *Service
	logger   *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// SetCallback registers cb as the live consumer. A nil cb clears the slot.
func (r *Registry) SetCallback(cb Callback) {
	r.mu.Lock()
	r.callback = cb
	r.mu.Unlock()
	r.logger.Debug("callback set", "present", cb != nil)
}

// ClearCallback removes the live consumer.
func (r *Registry) ClearCallback() {
	r.SetCallback(nil)
}

// Callback returns the registered callback, or nil.
func (r *Registry) Callback() Callback {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callback
}

// HasCallback reports whether a live consumer is registered.
func (r *Registry) HasCallback() bool {
	return r.Callback() != nil
}

// Service returns the currently alive service, or nil.
func (r *Registry) Service() *Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.service
}

func (r *Registry) setService(s *Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.service = s
}

// clearService clears the reference only if it still points at s.
func (r *Registry) clearService(s *Service) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.service == s {
		r.service = nil
	}
}
