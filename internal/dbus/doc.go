// Package dbus connects calendar-pulse to the session bus. A Monitor
// passively observes org.freedesktop.Notifications Notify calls and feeds
// them to the listener service; a BridgeServer exports the web-facing
// operations and emits the notificationReceived signal.
package dbus
