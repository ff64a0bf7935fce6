package conversation

import "unicode/utf8"

const (
	// TitleMaxLen is the number of characters kept from the first message.
	TitleMaxLen   = 30
	titleEllipsis = "..."
)

// DeriveTitle builds a chat title from its first message: the first
// TitleMaxLen characters, followed by "..." when the content was longer.
func DeriveTitle(content string) string {
	if utf8.RuneCountInString(content) <= TitleMaxLen {
		return content
	}
	runes := []rune(content)
	return string(runes[:TitleMaxLen]) + titleEllipsis
}
