package output

import (
	"encoding/json"
	"io"

	"github.com/cris2986/calendar-pulse/internal/model"
)

// JSONFormatter formats records using the queue's JSON wire format.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes records as a JSON array. A nil slice is written as [].
func (f *JSONFormatter) Format(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	return f.encode(w, records)
}

// FormatResult writes v as a JSON object.
func (f *JSONFormatter) FormatResult(w io.Writer, v any) error {
	return f.encode(w, v)
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if !f.opts.Compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}
