package listener

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cris2986/calendar-pulse/internal/model"
	"github.com/cris2986/calendar-pulse/internal/store"
)

func newTestService(t *testing.T) (*Service, *Registry, *store.Queue) {
	t.Helper()
	registry := NewRegistry(nil)
	queue := store.NewQueue(store.NewMemoryKV(), nil)
	return NewService(registry, queue, nil), registry, queue
}

func event(pkg, title, text string, postTime int64) Event {
	extras := map[string]string{}
	if title != "" {
		extras[ExtraTitle] = title
	}
	if text != "" {
		extras[ExtraText] = text
	}
	return Event{PackageName: pkg, Extras: extras, PostTime: postTime}
}

func queueSize(t *testing.T, q *store.Queue) int {
	t.Helper()
	size, err := q.Size()
	require.NoError(t, err)
	return size
}

func TestEvent_Body(t *testing.T) {
	tests := []struct {
		name     string
		extras   map[string]string
		expected string
	}{
		{
			name:     "short only",
			extras:   map[string]string{ExtraText: "Hi"},
			expected: "Hi",
		},
		{
			name:     "expanded longer",
			extras:   map[string]string{ExtraText: "Hi", ExtraBigText: "Hi, are we still meeting tomorrow at 5?"},
			expected: "Hi, are we still meeting tomorrow at 5?",
		},
		{
			name:     "expanded same length",
			extras:   map[string]string{ExtraText: "abc", ExtraBigText: "xyz"},
			expected: "abc",
		},
		{
			name:     "expanded shorter",
			extras:   map[string]string{ExtraText: "longer text", ExtraBigText: "short"},
			expected: "longer text",
		},
		{
			name:     "expanded only",
			extras:   map[string]string{ExtraBigText: "only big"},
			expected: "only big",
		},
		{
			name:     "characters not bytes",
			extras:   map[string]string{ExtraText: "abc", ExtraBigText: "ñá"},
			expected: "abc",
		},
		{
			name:     "emoji count as two units",
			extras:   map[string]string{ExtraText: "abcd", ExtraBigText: "😀😀😀"},
			expected: "😀😀😀",
		},
		{
			name:     "emoji equal units",
			extras:   map[string]string{ExtraText: "abcd", ExtraBigText: "😀😀"},
			expected: "abcd",
		},
		{
			name:     "nothing",
			extras:   nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Event{Extras: tt.extras}.Body())
		})
	}
}

func TestService_FiltersUnknownPackage(t *testing.T) {
	s, registry, queue := newTestService(t)

	var delivered []model.Record
	registry.SetCallback(func(r model.Record) error {
		delivered = append(delivered, r)
		return nil
	})

	outcome := s.OnNotificationPosted(event("com.other.app", "X", "Y", 1))
	assert.Equal(t, OutcomeFiltered, outcome)
	assert.Empty(t, delivered)

	registry.ClearCallback()
	outcome = s.OnNotificationPosted(event("com.other.app", "X", "Y", 1))
	assert.Equal(t, OutcomeFiltered, outcome)
	assert.Equal(t, 0, queueSize(t, queue))
}

func TestService_SkipsEmptyBody(t *testing.T) {
	s, _, queue := newTestService(t)

	outcome := s.OnNotificationPosted(event("com.whatsapp", "Alice", "", 1))
	assert.Equal(t, OutcomeEmpty, outcome)
	assert.Equal(t, 0, queueSize(t, queue))
}

func TestService_PrefersExpandedText(t *testing.T) {
	s, _, queue := newTestService(t)

	ev := event("com.whatsapp", "Alice", "Hi", 1700000000000)
	ev.Extras[ExtraBigText] = "Hi, are we still meeting tomorrow at 5?"

	assert.Equal(t, OutcomeQueued, s.OnNotificationPosted(ev))

	records, err := queue.Drain()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.Record{
		PackageName: "com.whatsapp",
		Title:       "Alice",
		Text:        "Hi, are we still meeting tomorrow at 5?",
		Timestamp:   1700000000000,
	}, records[0])
}

func TestService_LiveDeliverySkipsQueue(t *testing.T) {
	s, registry, queue := newTestService(t)

	var delivered []model.Record
	registry.SetCallback(func(r model.Record) error {
		delivered = append(delivered, r)
		return nil
	})

	outcome := s.OnNotificationPosted(event("com.google.android.gm", "Bob", "Lunch?", 42))
	assert.Equal(t, OutcomeDelivered, outcome)
	require.Len(t, delivered, 1)
	assert.Equal(t, "Lunch?", delivered[0].Text)
	assert.Equal(t, int64(42), delivered[0].Timestamp)
	assert.Equal(t, 0, queueSize(t, queue))
}

func TestService_CallbackFailureFallsBackToQueue(t *testing.T) {
	tests := []struct {
		name string
		cb   Callback
	}{
		{
			name: "error",
			cb:   func(model.Record) error { return errors.New("webview gone") },
		},
		{
			name: "panic",
			cb:   func(model.Record) error { panic("boom") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, registry, queue := newTestService(t)
			registry.SetCallback(tt.cb)

			outcome := s.OnNotificationPosted(event("com.android.mms", "", "Code 1234", 5))
			assert.Equal(t, OutcomeQueued, outcome)
			assert.Equal(t, 1, queueSize(t, queue))
		})
	}
}

func TestService_NoCallbackQueues(t *testing.T) {
	s, _, queue := newTestService(t)

	assert.Equal(t, OutcomeQueued, s.OnNotificationPosted(event("com.whatsapp", "Alice", "Hi", 1)))
	assert.Equal(t, OutcomeQueued, s.OnNotificationPosted(event("com.whatsapp", "Alice", "Again", 2)))
	assert.Equal(t, 2, queueSize(t, queue))
}

type failingQueue struct{}

func (failingQueue) Append(model.Record) (int, error) { return 0, store.ErrClosed }

func TestService_QueueFailureDrops(t *testing.T) {
	s := NewService(NewRegistry(nil), failingQueue{}, nil)
	assert.Equal(t, OutcomeDropped, s.OnNotificationPosted(event("com.whatsapp", "Alice", "Hi", 1)))
}

func TestService_Lifecycle(t *testing.T) {
	s, registry, _ := newTestService(t)
	assert.Nil(t, registry.Service())

	s.OnCreate()
	assert.Same(t, s, registry.Service())

	// A newer instance replaces the reference; the old one's teardown must not clear it.
	newer := NewService(registry, nil, nil)
	newer.OnCreate()
	s.OnDestroy()
	assert.Same(t, newer, registry.Service())

	newer.OnDestroy()
	assert.Nil(t, registry.Service())
}

func TestRegistry_LastWriterWins(t *testing.T) {
	registry := NewRegistry(nil)
	assert.False(t, registry.HasCallback())

	var got string
	registry.SetCallback(func(model.Record) error { got = "first"; return nil })
	registry.SetCallback(func(model.Record) error { got = "second"; return nil })
	require.True(t, registry.HasCallback())

	require.NoError(t, registry.Callback()(model.Record{}))
	assert.Equal(t, "second", got)

	registry.ClearCallback()
	assert.False(t, registry.HasCallback())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "filtered", OutcomeFiltered.String())
	assert.Equal(t, "queued", OutcomeQueued.String())
	assert.Equal(t, "unknown", Outcome(99).String())
}
