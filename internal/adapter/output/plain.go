package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/cris2986/calendar-pulse/internal/model"
)

// PlainFormatter formats records as human-readable text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs()).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes records as plain text, or "no notifications" when empty.
func (f *PlainFormatter) Format(w io.Writer, records []model.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no notifications")
		return err
	}
	for i := range records {
		if err := f.formatRecord(w, i+1, &records[i]); err != nil {
			return err
		}
	}
	return nil
}

// formatRecord formats a single record.
func (f *PlainFormatter) formatRecord(w io.Writer, index int, r *model.Record) error {
	if f.template != nil {
		data := templateData{
			Index:        index,
			Record:       r,
			RelativeTime: r.RelativeTime(),
		}
		if err := f.template.Execute(w, data); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	}

	var sb strings.Builder

	if f.opts.ShowIndex {
		sb.WriteString(fmt.Sprintf("[%d] ", index))
	}

	if f.opts.ShowPackage {
		sb.WriteString(fmt.Sprintf("<%s> ", r.PackageName))
	}

	sb.WriteString(r.Title)

	if f.opts.ShowTime && r.Timestamp > 0 {
		sb.WriteString(fmt.Sprintf(" (%s)", humanize.Time(r.CapturedAt())))
	}

	sb.WriteString("\n")

	if text := sanitizeText(r.Text, f.opts.TextMaxLen, f.opts.IncludeNewline); text != "" {
		sb.WriteString("    " + text + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatResult writes the fields of v as sorted "key: value" lines.
func (f *PlainFormatter) FormatResult(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		_, err := fmt.Fprintln(w, string(data))
		return err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s: %v\n", k, fields[k]); err != nil {
			return err
		}
	}
	return nil
}

// templateData provides data for custom templates.
type templateData struct {
	Index        int
	Record       *model.Record
	RelativeTime string
}

// templateFuncs returns template helper functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"truncate": func(s string, maxLen int) string {
			return truncate(s, maxLen)
		},
		"humantime": func(ms int64) string {
			return humanize.Time(time.UnixMilli(ms))
		},
	}
}

// sanitizeText cleans up text for display.
func sanitizeText(text string, maxLen int, includeNewline bool) string {
	if !includeNewline {
		text = strings.ReplaceAll(text, "\r", "")
		text = strings.ReplaceAll(text, "\n", " ")
	}
	return truncate(strings.TrimSpace(text), maxLen)
}

// truncate shortens s to maxLen runes, ending in "...".
func truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
