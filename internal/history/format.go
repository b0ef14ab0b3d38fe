package history

import (
	"fmt"
	"time"
)

// PreviewLength is the number of characters shown for an entry in a list.
const PreviewLength = 50

// Preview shortens text to PreviewLength characters, appending "..." when
// it was cut.
func Preview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + "..."
}

// FormatAge describes how long ago t was, relative to now.
func FormatAge(t, now time.Time) string {
	mins := int(now.Sub(t) / time.Minute)

	switch {
	case mins < 1:
		return "Just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	}

	hours := mins / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}

	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd ago", days)
	}

	return t.Local().Format("2006-01-02")
}
