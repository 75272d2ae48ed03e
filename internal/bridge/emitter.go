package bridge

import (
	"errors"

	"github.com/cris2986/calendar-pulse/internal/model"
)

// ErrNoConsumer is returned by an Emitter that had nobody to deliver to.
var ErrNoConsumer = errors.New("no live consumer")

// Emitter delivers named events to the web layer. An emitter with no
// subscriber returns an error wrapping ErrNoConsumer.
type Emitter interface {
	Emit(event string, r model.Record) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, r model.Record) error

// Emit calls f.
func (f EmitterFunc) Emit(event string, r model.Record) error {
	return f(event, r)
}

// MultiEmitter emits every event to each of its emitters.
type MultiEmitter []Emitter

// Emit fans the event out. It succeeds if at least one emitter delivered;
// otherwise it returns the joined failures, or ErrNoConsumer when no emitter
// had a subscriber.
func (m MultiEmitter) Emit(event string, r model.Record) error {
	delivered := false
	var errs []error
	for _, e := range m {
		err := e.Emit(event, r)
		switch {
		case err == nil:
			delivered = true
		case !errors.Is(err, ErrNoConsumer):
			errs = append(errs, err)
		}
	}

	if delivered {
		return nil
	}
	if len(errs) == 0 {
		return ErrNoConsumer
	}
	return errors.Join(errs...)
}
