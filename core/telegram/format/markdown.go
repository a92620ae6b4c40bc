package format

import "strings"

const mdV2Specials = `\_*[]()~` + "`" + `>#+-=|{}.!`

// EscapeMarkdownV2 escapes the characters Telegram MarkdownV2 treats as
// special, so user-supplied names and phones can be embedded verbatim.
func EscapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(mdV2Specials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
