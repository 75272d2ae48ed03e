package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cris2986/calendar-pulse/internal/model"
)

const (
	// QueueKey is the key the queue is stored under.
	QueueKey = "notification_queue"
	// DefaultCapacity is the maximum number of queued records.
	DefaultCapacity = 100

	emptyQueue = "[]"
)

// Queue is a bounded FIFO of notification records persisted as a JSON array
// under a single key. When full, the oldest records are evicted.
//
// Append and Drain are read-modify-write sequences; the mutex serialises them
// within this process. Writers in other processes are not coordinated.
type Queue struct {
	mu       sync.Mutex
	kv       KV
	capacity int
	logger   *slog.Logger
}

// NewQueue creates a Queue over kv with DefaultCapacity.
func NewQueue(kv KV, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		kv:       kv,
		capacity: DefaultCapacity,
		logger:   logger,
	}
}

// Capacity returns the maximum number of records kept.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Append adds r at the end of the queue, evicting the oldest records while the
// queue exceeds capacity. Malformed stored data is replaced by a fresh queue.
// Returns the queue length after the append.
func (q *Queue) Append(r model.Record) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, err := q.kv.Get(QueueKey, emptyQueue)
	if err != nil {
		return 0, fmt.Errorf("read queue: %w", err)
	}

	records, err := decodeQueue(raw)
	if err != nil {
		q.logger.Warn("malformed queue data, starting fresh", "error", err)
		records = nil
	}

	records = append(records, r)
	for len(records) > q.capacity {
		records = records[1:]
	}

	data, err := json.Marshal(records)
	if err != nil {
		return 0, fmt.Errorf("encode queue: %w", err)
	}
	if err := q.kv.Put(QueueKey, string(data)); err != nil {
		return 0, fmt.Errorf("write queue: %w", err)
	}

	return len(records), nil
}

// Drain returns every queued record in insertion order and clears the queue.
// The stored value is cleared before it is decoded, so malformed data is
// discarded and reported as an error.
func (q *Queue) Drain() ([]model.Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, err := q.kv.Get(QueueKey, emptyQueue)
	if err != nil {
		return []model.Record{}, fmt.Errorf("read queue: %w", err)
	}

	if err := q.kv.Put(QueueKey, emptyQueue); err != nil {
		return []model.Record{}, fmt.Errorf("clear queue: %w", err)
	}

	records, err := decodeQueue(raw)
	if err != nil {
		return []model.Record{}, err
	}
	q.logger.Debug("retrieved and cleared queue", "count", len(records))
	return records, nil
}

// Peek returns the queued records without clearing them.
func (q *Queue) Peek() ([]model.Record, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, err := q.kv.Get(QueueKey, emptyQueue)
	if err != nil {
		return []model.Record{}, fmt.Errorf("read queue: %w", err)
	}
	records, err := decodeQueue(raw)
	if err != nil {
		return []model.Record{}, err
	}
	return records, nil
}

// Size returns the number of queued records.
func (q *Queue) Size() (int, error) {
	records, err := q.Peek()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// storedRecord mirrors model.Record with every key required.
type storedRecord struct {
	PackageName *string `json:"packageName"`
	Title       *string `json:"title"`
	Text        *string `json:"text"`
	Timestamp   *int64  `json:"timestamp"`
}

// decodeQueue parses the stored JSON array. Every element must be an object
// carrying all record keys and a non-empty text. The result is never nil.
func decodeQueue(raw string) ([]model.Record, error) {
	var stored []*storedRecord
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return []model.Record{}, fmt.Errorf("decode queue: %w", err)
	}

	records := make([]model.Record, 0, len(stored))
	for i, s := range stored {
		switch {
		case s == nil:
			return []model.Record{}, fmt.Errorf("decode queue: entry %d is null", i)
		case s.PackageName == nil, s.Title == nil, s.Text == nil, s.Timestamp == nil:
			return []model.Record{}, fmt.Errorf("decode queue: entry %d is missing a field", i)
		case *s.Text == "":
			return []model.Record{}, fmt.Errorf("decode queue: entry %d: %w", i, model.ErrEmptyText)
		}
		records = append(records, model.Record{
			PackageName: *s.PackageName,
			Title:       *s.Title,
			Text:        *s.Text,
			Timestamp:   *s.Timestamp,
		})
	}
	return records, nil
}
