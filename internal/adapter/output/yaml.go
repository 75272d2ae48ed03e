package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/cris2986/calendar-pulse/internal/model"
)

// YAMLFormatter formats records and results as YAML.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// Format writes records as a YAML sequence.
func (f *YAMLFormatter) Format(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	return f.encode(w, records)
}

// FormatResult writes v as a YAML mapping. Field names follow the JSON tags
// so both formats use the same keys.
func (f *YAMLFormatter) FormatResult(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return err
	}
	return f.encode(w, generic)
}

func (f *YAMLFormatter) encode(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
