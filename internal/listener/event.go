package listener

import "unicode/utf16"

// Extras keys carried by a posted notification.
const (
	ExtraTitle   = "android.title"
	ExtraText    = "android.text"
	ExtraBigText = "android.bigText"
)

// Event is a notification-posted event as delivered by the OS notification
// subsystem.
type Event struct {
	PackageName string
	Extras      map[string]string // text fields keyed by the Extra* constants
	PostTime    int64             // ms since epoch
}

// Title returns the title extra, or "" when absent.
func (e Event) Title() string {
	return e.Extras[ExtraTitle]
}

// Body returns the expanded text when present and strictly longer than the
// short text, otherwise the short text. Length is counted in UTF-16 code
// units, so a character outside the BMP counts twice.
func (e Event) Body() string {
	text := e.Extras[ExtraText]
	if bigText, ok := e.Extras[ExtraBigText]; ok && textLen(bigText) > textLen(text) {
		return bigText
	}
	return text
}

func textLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
