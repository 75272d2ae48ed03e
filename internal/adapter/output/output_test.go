package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cris2986/calendar-pulse/internal/model"
)

func testRecords() []model.Record {
	now := time.Now()
	return []model.Record{
		{
			PackageName: "com.whatsapp",
			Title:       "Alice",
			Text:        "Dinner on Friday at 8?",
			Timestamp:   now.Add(-5 * time.Minute).UnixMilli(),
		},
		{
			PackageName: "com.google.android.gm",
			Title:       "Team standup moved",
			Text:        "Tomorrow 10:30 instead of 9:00",
			Timestamp:   now.Add(-2 * time.Hour).UnixMilli(),
		},
	}
}

type sizeResult struct {
	Size int `json:"size"`
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"json", "yaml", "plain"} {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, FormatType(name), f)
	}

	_, err := ParseFormat("dmenu")
	assert.Error(t, err)
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	formatter := NewJSONFormatter(DefaultFormatterOptions())
	require.NoError(t, formatter.Format(&buf, testRecords()))

	var result []model.Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Len(t, result, 2)
	assert.Equal(t, "com.whatsapp", result[0].PackageName)
	assert.Equal(t, "com.google.android.gm", result[1].PackageName)
}

func TestJSONFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer

	formatter := NewJSONFormatter(FormatterOptions{Compact: true})
	require.NoError(t, formatter.Format(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestJSONFormatter_FormatResult(t *testing.T) {
	var buf bytes.Buffer

	formatter := NewJSONFormatter(FormatterOptions{Compact: true})
	require.NoError(t, formatter.FormatResult(&buf, sizeResult{Size: 3}))
	assert.Equal(t, "{\"size\":3}\n", buf.String())
}

func TestYAMLFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	formatter := NewYAMLFormatter(DefaultFormatterOptions())
	require.NoError(t, formatter.Format(&buf, testRecords()))

	var result []model.Record
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &result))
	require.Len(t, result, 2)
	assert.Equal(t, "Alice", result[0].Title)
	assert.Contains(t, buf.String(), "packageName: com.whatsapp")
}

func TestYAMLFormatter_FormatResult(t *testing.T) {
	var buf bytes.Buffer

	formatter := NewYAMLFormatter(DefaultFormatterOptions())
	require.NoError(t, formatter.FormatResult(&buf, sizeResult{Size: 3}))
	assert.Equal(t, "size: 3\n", buf.String())
}

func TestPlainFormatter_Format(t *testing.T) {
	var buf bytes.Buffer

	formatter := NewPlainFormatter(DefaultFormatterOptions())
	require.NoError(t, formatter.Format(&buf, testRecords()))

	output := buf.String()
	assert.Contains(t, output, "[1] <com.whatsapp> Alice (5 minutes ago)")
	assert.Contains(t, output, "    Dinner on Friday at 8?")
	assert.Contains(t, output, "[2] <com.google.android.gm> Team standup moved (2 hours ago)")
}

func TestPlainFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewPlainFormatter(DefaultFormatterOptions()).Format(&buf, nil))
	assert.Equal(t, "no notifications\n", buf.String())
}

func TestPlainFormatter_CustomTemplate(t *testing.T) {
	var buf bytes.Buffer

	opts := DefaultFormatterOptions()
	opts.Template = "{{.Index}}: {{.Record.PackageName}} - {{truncate .Record.Text 10}}"
	formatter := NewPlainFormatter(opts)
	require.NoError(t, formatter.Format(&buf, testRecords()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1: com.whatsapp - Dinner ...", lines[0])
	assert.Equal(t, "2: com.google.android.gm - Tomorro...", lines[1])
}

func TestPlainFormatter_InvalidTemplateFallsBack(t *testing.T) {
	var buf bytes.Buffer

	opts := DefaultFormatterOptions()
	opts.Template = "{{.Index"
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testRecords()))
	assert.Contains(t, buf.String(), "[1] <com.whatsapp> Alice")
}

func TestPlainFormatter_FormatResult(t *testing.T) {
	var buf bytes.Buffer

	result := struct {
		Started bool   `json:"started"`
		Error   string `json:"error"`
	}{false, "Notification access not granted. Please enable it in settings."}

	require.NoError(t, NewPlainFormatter(DefaultFormatterOptions()).FormatResult(&buf, result))
	assert.Equal(t, "error: Notification access not granted. Please enable it in settings.\nstarted: false\n", buf.String())
}

func TestNewFormatter(t *testing.T) {
	opts := DefaultFormatterOptions()

	t.Run("json", func(t *testing.T) {
		_, ok := NewFormatter(FormatJSON, opts).(*JSONFormatter)
		assert.True(t, ok)
	})

	t.Run("yaml", func(t *testing.T) {
		_, ok := NewFormatter(FormatYAML, opts).(*YAMLFormatter)
		assert.True(t, ok)
	})

	t.Run("default", func(t *testing.T) {
		_, ok := NewFormatter("unknown", opts).(*PlainFormatter)
		assert.True(t, ok)
	})
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name           string
		text           string
		maxLen         int
		includeNewline bool
		expected       string
	}{
		{"simple", "hello world", 0, false, "hello world"},
		{"with newlines", "hello\r\nworld", 0, false, "hello world"},
		{"preserve newlines", "hello\nworld", 0, true, "hello\nworld"},
		{"truncate", "hello world", 8, false, "hello..."},
		{"truncate runes", "¿nos vemos mañana?", 8, false, "¿nos ..."},
		{"short max", "hello", 2, false, "he"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeText(tt.text, tt.maxLen, tt.includeNewline))
		})
	}
}
