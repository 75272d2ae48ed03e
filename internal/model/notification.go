// Package model defines the core data structures for calendar-pulse.
package model

import (
	"errors"
	"fmt"
	"time"
)

// AllowedPackages is the fixed set of source apps whose notifications are captured.
var AllowedPackages = map[string]bool{
	// WhatsApp
	"com.whatsapp":     true,
	"com.whatsapp.w4b": true, // WhatsApp Business
	// Gmail
	"com.google.android.gm": true,
	// SMS/Messages apps
	"com.google.android.apps.messaging": true, // Google Messages
	"com.samsung.android.messaging":     true, // Samsung Messages
	"com.android.mms":                   true, // Stock Android SMS
}

// IsAllowed reports whether notifications from packageName are captured.
func IsAllowed(packageName string) bool {
	return AllowedPackages[packageName]
}

// Record is a captured notification.
// The JSON form is both the persisted queue format and the event payload.
type Record struct {
	PackageName string `json:"packageName" yaml:"packageName"`
	Title       string `json:"title" yaml:"title"`
	Text        string `json:"text" yaml:"text"`
	Timestamp   int64  `json:"timestamp" yaml:"timestamp"` // OS post time, ms since epoch
}

// Validation errors.
var (
	ErrEmptyPackage = errors.New("packageName cannot be empty")
	ErrNotAllowed   = errors.New("packageName is not on the allow-list")
	ErrEmptyText    = errors.New("text cannot be empty")
)

// Validate checks the record invariants.
func (r *Record) Validate() error {
	if r.PackageName == "" {
		return ErrEmptyPackage
	}
	if !IsAllowed(r.PackageName) {
		return fmt.Errorf("%w: %s", ErrNotAllowed, r.PackageName)
	}
	if r.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// CapturedAt returns the post time as a time.Time.
func (r *Record) CapturedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// RelativeTime returns a human-readable relative time string.
// Examples: "just now", "5m ago", "2h ago", "1d ago".
func (r *Record) RelativeTime() string {
	diff := int64(time.Since(r.CapturedAt()).Seconds())

	if diff < 0 {
		return "in the future"
	}
	if diff < 60 {
		return "just now"
	}
	if diff < 3600 {
		return fmt.Sprintf("%dm ago", diff/60)
	}
	if diff < 86400 {
		return fmt.Sprintf("%dh ago", diff/3600)
	}
	return fmt.Sprintf("%dd ago", diff/86400)
}

// String returns a short log-friendly representation.
func (r Record) String() string {
	return fmt.Sprintf("%s: %s - %s", r.PackageName, r.Title, r.Text)
}
