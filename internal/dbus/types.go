package dbus

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/cris2986/calendar-pulse/internal/listener"
)

// HintBigText carries the expanded body of a notification, when the sender
// provides one.
const HintBigText = "x-calendar-pulse-big-text"

// DBusNotification represents an incoming D-Bus Notify call.
// It contains the raw parameters from the org.freedesktop.Notifications.Notify method.
type DBusNotification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// parseNotify decodes the body of a Notify method call:
// Notify(app_name, replaces_id, app_icon, summary, body, actions, hints, expire_timeout)
func parseNotify(body []interface{}) (*DBusNotification, error) {
	if len(body) < 8 {
		return nil, fmt.Errorf("malformed Notify call: %d arguments", len(body))
	}

	n := &DBusNotification{}
	var ok bool
	if n.AppName, ok = body[0].(string); !ok {
		return nil, fmt.Errorf("invalid app_name type %T", body[0])
	}
	if n.ReplacesID, ok = body[1].(uint32); !ok {
		return nil, fmt.Errorf("invalid replaces_id type %T", body[1])
	}
	if n.AppIcon, ok = body[2].(string); !ok {
		return nil, fmt.Errorf("invalid app_icon type %T", body[2])
	}
	if n.Summary, ok = body[3].(string); !ok {
		return nil, fmt.Errorf("invalid summary type %T", body[3])
	}
	if n.Body, ok = body[4].(string); !ok {
		return nil, fmt.Errorf("invalid body type %T", body[4])
	}

	if actions, ok := body[5].([]string); ok {
		n.Actions = actions
	}
	if hints, ok := body[6].(map[string]dbus.Variant); ok {
		n.Hints = hints
	}
	if timeout, ok := body[7].(int32); ok {
		n.ExpireTimeout = timeout
	}
	return n, nil
}

func (n *DBusNotification) stringHint(name string) (string, bool) {
	if v, ok := n.Hints[name]; ok {
		if s, ok := v.Value().(string); ok {
			return s, true
		}
	}
	return "", false
}

// DesktopEntry extracts the desktop-entry hint.
func (n *DBusNotification) DesktopEntry() string {
	s, _ := n.stringHint("desktop-entry")
	return s
}

// BigText extracts the expanded body hint.
func (n *DBusNotification) BigText() (string, bool) {
	return n.stringHint(HintBigText)
}

// PackageName identifies the sending application: the desktop-entry hint
// when present, otherwise the app name.
func (n *DBusNotification) PackageName() string {
	if entry := n.DesktopEntry(); entry != "" {
		return entry
	}
	return n.AppName
}

// Event converts the call into a listener event posted at postTime.
// Empty summary and body are left out of the extras.
func (n *DBusNotification) Event(postTime time.Time) listener.Event {
	extras := make(map[string]string, 3)
	if n.Summary != "" {
		extras[listener.ExtraTitle] = n.Summary
	}
	if n.Body != "" {
		extras[listener.ExtraText] = n.Body
	}
	if bigText, ok := n.BigText(); ok {
		extras[listener.ExtraBigText] = bigText
	}
	return listener.Event{
		PackageName: n.PackageName(),
		Extras:      extras,
		PostTime:    postTime.UnixMilli(),
	}
}
