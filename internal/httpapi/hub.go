package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cris2986/calendar-pulse/internal/bridge"
	"github.com/cris2986/calendar-pulse/internal/model"
)

// subscriberBuffer is the number of events held per slow subscriber.
const subscriberBuffer = 16

// Event is one server-sent event.
type Event struct {
	ID   string
	Name string
	Data []byte
}

// Hub broadcasts events to the currently connected subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
	logger      *slog.Logger
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subscribers: make(map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber. The returned function unsubscribes
// and closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Emit implements bridge.Emitter. A subscriber whose buffer is full misses
// the event. If no subscriber took the event Emit returns
// bridge.ErrNoConsumer.
func (h *Hub) Emit(event string, r model.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}

	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return err
	}
	ev := Event{ID: id.String(), Name: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for ch := range h.subscribers {
		select {
		case ch <- ev:
			sent++
		default:
			h.logger.Warn("subscriber too slow, dropping event", "event", event, "id", ev.ID)
		}
	}
	if sent == 0 {
		return bridge.ErrNoConsumer
	}
	return nil
}
