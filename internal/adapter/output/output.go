// Package output provides output formatters for captured notifications and
// bridge results.
package output

import (
	"fmt"
	"io"

	"github.com/cris2986/calendar-pulse/internal/model"
)

// Formatter formats records and bridge results for output.
type Formatter interface {
	// Format writes formatted records to the writer.
	Format(w io.Writer, records []model.Record) error
	// FormatResult writes a single bridge result to the writer.
	FormatResult(w io.Writer, v any) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatJSON  FormatType = "json"
	FormatYAML  FormatType = "yaml"
	FormatPlain FormatType = "plain"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (FormatType, error) {
	switch f := FormatType(name); f {
	case FormatJSON, FormatYAML, FormatPlain:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json, yaml or plain)", name)
	}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) Formatter {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(opts)
	case FormatYAML:
		return NewYAMLFormatter(opts)
	case FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template       string // Custom template for plain format
	ShowIndex      bool   // Show 1-based index prefix
	ShowTime       bool   // Show relative time
	ShowPackage    bool   // Show source package name
	TextMaxLen     int    // Maximum text length in runes (0 = unlimited)
	IncludeNewline bool   // Include newlines in text (default: replace with space)
	Compact        bool   // Single-line JSON
}

// DefaultFormatterOptions returns sensible defaults for terminal output.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:   true,
		ShowTime:    true,
		ShowPackage: true,
		TextMaxLen:  120,
	}
}
