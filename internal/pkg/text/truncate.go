package text

// Truncate shortens s to at most max runes, appending "..." when cut.
// Counting runes keeps multi-byte Hangul intact.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
