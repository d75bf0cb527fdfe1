package whatsapp

import "strings"

const (
	// maxTextLength is the Cloud API limit for a text message body.
	maxTextLength = 4000
	// truncateAt leaves room for the truncation notice.
	truncateAt = 3900

	truncationNotice = "\n\n... (message truncated)\n\nAsk me for more details!"
)

// FormatText rewrites markdown conventions that do not render in WhatsApp
// and truncates messages that exceed the platform limit.
//
// Double-asterisk bold becomes WhatsApp single-asterisk bold, and markdown
// header markers are stripped.
func FormatText(text string) string {
	formatted := strings.ReplaceAll(text, "**", "*")
	formatted = strings.ReplaceAll(formatted, "###", "")
	formatted = strings.ReplaceAll(formatted, "##", "")
	formatted = strings.ReplaceAll(formatted, "#", "")

	if len(formatted) > maxTextLength {
		formatted = formatted[:truncateAt] + truncationNotice
	}
	return formatted
}
