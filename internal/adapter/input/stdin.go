package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/cris2986/calendar-pulse/internal/listener"
)

// StdinAdapter reads events from standard input.
type StdinAdapter struct {
	reader io.Reader
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{reader: r}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return "stdin"
}

// Import reads events from standard input.
// Supports two formats:
// 1. JSON array of entries
// 2. a stream of JSON objects, e.g. one per line
//
// Entries use the queue's record keys (packageName, title, text, timestamp)
// plus optional bigText and postTime.
func (a *StdinAdapter) Import(ctx context.Context) ([]listener.Event, error) {
	br := bufio.NewReader(a.reader)

	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to read stdin", Err: err}
	}

	decoder := json.NewDecoder(br)

	if first == '[' {
		var entries []stdinEntry
		if err := decoder.Decode(&entries); err != nil {
			return nil, &AdapterError{Source: "stdin", Message: "failed to parse JSON input", Err: err}
		}
		events := make([]listener.Event, 0, len(entries))
		for _, entry := range entries {
			events = append(events, entry.event())
		}
		return events, nil
	}

	var events []listener.Event
	for {
		if err := ctx.Err(); err != nil {
			return events, err
		}

		var entry stdinEntry
		err := decoder.Decode(&entry)
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, &AdapterError{Source: "stdin", Message: "failed to parse JSON input", Err: err}
		}
		events = append(events, entry.event())
	}
}

// peekNonSpace returns the first non-whitespace byte without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsAny(b, " \t\r\n") {
			return b[0], nil
		}
		if _, err := br.ReadByte(); err != nil {
			return 0, err
		}
	}
}

// stdinEntry is one notification in the input format.
type stdinEntry struct {
	PackageName string `json:"packageName"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	BigText     string `json:"bigText,omitempty"`
	PostTime    int64  `json:"postTime,omitempty"`
	Timestamp   int64  `json:"timestamp,omitempty"`
}

// event converts the entry to a listener event. postTime wins over timestamp.
func (e stdinEntry) event() listener.Event {
	extras := make(map[string]string)
	if e.Title != "" {
		extras[listener.ExtraTitle] = e.Title
	}
	if e.Text != "" {
		extras[listener.ExtraText] = e.Text
	}
	if e.BigText != "" {
		extras[listener.ExtraBigText] = e.BigText
	}

	postTime := e.PostTime
	if postTime == 0 {
		postTime = e.Timestamp
	}

	return listener.Event{
		PackageName: e.PackageName,
		Extras:      extras,
		PostTime:    postTime,
	}
}
