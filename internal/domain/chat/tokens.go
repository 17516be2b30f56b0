package chat

import "strings"

// EstimateTokens is the whitespace-segment count used whenever the backend
// does not report an authoritative token count.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}

const (
	TitleMaxChars = 50
	TitleEllipsis = "..."
)

// DeriveTitle cuts the raw message to TitleMaxChars characters and appends
// TitleEllipsis only when something was cut. Counting is by rune.
func DeriveTitle(message string) string {
	runes := []rune(message)
	if len(runes) <= TitleMaxChars {
		return message
	}
	return string(runes[:TitleMaxChars]) + TitleEllipsis
}
