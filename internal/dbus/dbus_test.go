package dbus

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cris2986/calendar-pulse/internal/bridge"
	"github.com/cris2986/calendar-pulse/internal/listener"
	"github.com/cris2986/calendar-pulse/internal/model"
	"github.com/cris2986/calendar-pulse/internal/settings"
	"github.com/cris2986/calendar-pulse/internal/store"
)

func notifyBody(appName, summary, body string, hints map[string]dbus.Variant) []interface{} {
	return []interface{}{appName, uint32(0), "", summary, body, []string{}, hints, int32(-1)}
}

func TestParseNotify(t *testing.T) {
	n, err := parseNotify(notifyBody("WhatsApp", "Alice", "Hi", nil))
	require.NoError(t, err)
	assert.Equal(t, "WhatsApp", n.AppName)
	assert.Equal(t, "Alice", n.Summary)
	assert.Equal(t, "Hi", n.Body)
	assert.Equal(t, int32(-1), n.ExpireTimeout)

	_, err = parseNotify([]interface{}{"too", "short"})
	assert.Error(t, err)

	bad := notifyBody("WhatsApp", "Alice", "Hi", nil)
	bad[3] = 42
	_, err = parseNotify(bad)
	assert.Error(t, err)
}

func TestPackageName(t *testing.T) {
	tests := []struct {
		name     string
		n        DBusNotification
		expected string
	}{
		{
			name:     "app name",
			n:        DBusNotification{AppName: "com.android.mms"},
			expected: "com.android.mms",
		},
		{
			name: "desktop entry wins",
			n: DBusNotification{
				AppName: "WhatsApp",
				Hints:   map[string]dbus.Variant{"desktop-entry": dbus.MakeVariant("com.whatsapp")},
			},
			expected: "com.whatsapp",
		},
		{
			name: "non-string hint ignored",
			n: DBusNotification{
				AppName: "com.whatsapp",
				Hints:   map[string]dbus.Variant{"desktop-entry": dbus.MakeVariant(int32(1))},
			},
			expected: "com.whatsapp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.n.PackageName())
		})
	}
}

func TestEvent(t *testing.T) {
	at := time.UnixMilli(1700000000123)

	n := DBusNotification{
		AppName: "com.whatsapp",
		Summary: "Alice",
		Body:    "Hi",
		Hints: map[string]dbus.Variant{
			HintBigText: dbus.MakeVariant("Hi, are we still meeting tomorrow at 5?"),
		},
	}
	ev := n.Event(at)
	assert.Equal(t, "com.whatsapp", ev.PackageName)
	assert.Equal(t, int64(1700000000123), ev.PostTime)
	assert.Equal(t, "Alice", ev.Title())
	assert.Equal(t, "Hi, are we still meeting tomorrow at 5?", ev.Body())

	empty := (&DBusNotification{AppName: "com.whatsapp"}).Event(at)
	assert.Empty(t, empty.Extras)
}

func TestMonitor_HandleMessage(t *testing.T) {
	m := NewMonitor(nil)
	m.now = func() time.Time { return time.UnixMilli(99) }

	var got []listener.Event
	m.SetEventHandler(func(ev listener.Event) { got = append(got, ev) })

	msg := &dbus.Message{
		Type: dbus.TypeMethodCall,
		Headers: map[dbus.HeaderField]dbus.Variant{
			dbus.FieldInterface: dbus.MakeVariant(NotificationsInterface),
			dbus.FieldMember:    dbus.MakeVariant("Notify"),
		},
		Body: notifyBody("com.google.android.gm", "Bob", "Lunch?", nil),
	}
	m.handleMessage(msg)

	other := &dbus.Message{
		Type: dbus.TypeMethodCall,
		Headers: map[dbus.HeaderField]dbus.Variant{
			dbus.FieldInterface: dbus.MakeVariant(NotificationsInterface),
			dbus.FieldMember:    dbus.MakeVariant("CloseNotification"),
		},
		Body: []interface{}{uint32(1)},
	}
	m.handleMessage(other)
	m.handleMessage(&dbus.Message{Type: dbus.TypeSignal})

	require.Len(t, got, 1)
	assert.Equal(t, "com.google.android.gm", got[0].PackageName)
	assert.Equal(t, "Lunch?", got[0].Body())
	assert.Equal(t, int64(99), got[0].PostTime)
}

func TestMonitor_StopWithoutStart(t *testing.T) {
	m := NewMonitor(nil)
	assert.NoError(t, m.Stop())
	assert.NoError(t, m.Stop())
}

func TestBridgeMethods(t *testing.T) {
	kv := store.NewMemoryKV()
	queue := store.NewQueue(kv, nil)
	_, err := queue.Append(model.Record{PackageName: "com.whatsapp", Title: "Alice", Text: "Hi", Timestamp: 7})
	require.NoError(t, err)

	controller := bridge.NewController(bridge.Options{
		PackageName: "com.calendarpulse.app",
		Settings:    settings.Static("com.calendarpulse.app/.Svc"),
		Queue:       queue,
		Registry:    listener.NewRegistry(nil),
	})
	b := NewBridgeServer(controller, nil).methods

	out, dbusErr := b.IsPermissionGranted()
	require.Nil(t, dbusErr)
	assert.JSONEq(t, `{"granted":true}`, out)

	out, dbusErr = b.GetQueueSize()
	require.Nil(t, dbusErr)
	assert.JSONEq(t, `{"size":1}`, out)

	out, dbusErr = b.GetQueuedNotifications()
	require.Nil(t, dbusErr)
	var res bridge.QueuedNotifications
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "Hi", res.Notifications[0].Text)

	out, dbusErr = b.StopListening()
	require.Nil(t, dbusErr)
	assert.JSONEq(t, `{"stopped":true}`, out)
}

func TestBridgeServer_EmitNotConnected(t *testing.T) {
	s := NewBridgeServer(nil, nil)
	err := s.Emit(bridge.EventNotificationReceived, model.Record{})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, err, bridge.ErrNoConsumer)
	assert.NoError(t, s.Stop())
}

func TestBridgeServer_Consumers(t *testing.T) {
	s := NewBridgeServer(nil, nil)
	b := s.methods

	require.Nil(t, b.Subscribe(dbus.Sender(":1.42")))
	require.Nil(t, b.Subscribe(dbus.Sender(":1.43")))
	require.Nil(t, b.Subscribe(dbus.Sender(":1.43")))
	assert.Equal(t, 2, s.Consumers())

	require.Nil(t, b.Unsubscribe(dbus.Sender(":1.43")))
	require.Nil(t, b.Unsubscribe(dbus.Sender(":1.99")))
	assert.Equal(t, 1, s.Consumers())

	// owner change to a new owner keeps the client
	s.handleSignal(&dbus.Signal{Name: nameOwnerChanged, Body: []interface{}{":1.42", ":1.42", ":1.50"}})
	s.handleSignal(&dbus.Signal{Name: "org.example.Other", Body: []interface{}{":1.42", ":1.42", ""}})
	s.handleSignal(nil)
	assert.Equal(t, 1, s.Consumers())

	s.handleSignal(&dbus.Signal{Name: nameOwnerChanged, Body: []interface{}{":1.42", ":1.42", ""}})
	assert.Equal(t, 0, s.Consumers())
}

func TestBridgeIntrospection(t *testing.T) {
	methods := bridgeIntrospectMethods()
	assert.Len(t, methods, 8)
	assert.Equal(t, "IsPermissionGranted", methods[0].Name)
	assert.Equal(t, "Subscribe", methods[6].Name)
	assert.Empty(t, methods[6].Args)

	signals := bridgeIntrospectSignals()
	require.Len(t, signals, 1)
	assert.Equal(t, "notificationReceived", signals[0].Name)
}
