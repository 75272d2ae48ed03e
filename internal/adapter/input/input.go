// Package input provides input adapters that feed synthetic notifications
// into the listener.
package input

import (
	"context"
	"fmt"

	"github.com/cris2986/calendar-pulse/internal/listener"
)

// InputAdapter reads posted-notification events from a source.
type InputAdapter interface {
	// Name returns the adapter identifier (e.g., "stdin").
	Name() string

	// Import reads all events from the source.
	Import(ctx context.Context) ([]listener.Event, error)
}

// NewAdapter creates an InputAdapter for the specified source.
func NewAdapter(source string) (InputAdapter, error) {
	switch source {
	case "stdin", "-":
		return NewStdinAdapter(), nil
	default:
		return nil, &AdapterError{
			Source:  source,
			Message: fmt.Sprintf("unknown adapter %q", source),
		}
	}
}

// AdapterError represents an adapter-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
