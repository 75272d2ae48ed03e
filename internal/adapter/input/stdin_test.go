package input

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cris2986/calendar-pulse/internal/listener"
)

func TestStdinAdapter_Array(t *testing.T) {
	in := `
[
  {"packageName": "com.whatsapp", "title": "Alice", "text": "Hi", "timestamp": 1700000000000},
  {"packageName": "com.google.android.gm", "title": "Standup", "text": "Moved", "bigText": "Moved to 10:30", "postTime": 5}
]`
	events, err := NewStdinAdapterWithReader(strings.NewReader(in)).Import(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "com.whatsapp", events[0].PackageName)
	assert.Equal(t, "Alice", events[0].Title())
	assert.Equal(t, "Hi", events[0].Body())
	assert.Equal(t, int64(1700000000000), events[0].PostTime)

	assert.Equal(t, "Moved to 10:30", events[1].Body())
	assert.Equal(t, int64(5), events[1].PostTime)
}

func TestStdinAdapter_Lines(t *testing.T) {
	in := `{"packageName": "com.android.mms", "text": "one"}
{"packageName": "com.android.mms", "text": "two"}
`
	events, err := NewStdinAdapterWithReader(strings.NewReader(in)).Import(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].Body())
	assert.Equal(t, "two", events[1].Body())
	assert.Empty(t, events[0].Extras[listener.ExtraTitle])
}

func TestStdinAdapter_Empty(t *testing.T) {
	events, err := NewStdinAdapterWithReader(strings.NewReader("  \n")).Import(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStdinAdapter_Malformed(t *testing.T) {
	in := `{"packageName": "com.android.mms", "text": "ok"}
{"packageName": `
	events, err := NewStdinAdapterWithReader(strings.NewReader(in)).Import(context.Background())
	require.Error(t, err)

	var adapterErr *AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "stdin", adapterErr.Source)
	assert.Len(t, events, 1)
}

func TestNewAdapter(t *testing.T) {
	a, err := NewAdapter("stdin")
	require.NoError(t, err)
	assert.Equal(t, "stdin", a.Name())

	_, err = NewAdapter("dunst")
	assert.Error(t, err)
}
