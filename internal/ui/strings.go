package ui

import (
	"strings"
	"unicode/utf8"
)

// truncate trims value and cuts it to limit runes, ending in "..." when
// there is room for it.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	switch {
	case limit <= 0:
		return ""
	case utf8.RuneCountInString(value) <= limit:
		return value
	}
	r := []rune(value)
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

func padRight(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// fit returns s as a cell exactly width runes wide.
func fit(s string, width int) string {
	return padRight(truncate(s, width), width)
}

// titleCase turns "on_duty" into "On Duty".
func titleCase(value string) string {
	words := strings.Fields(strings.ReplaceAll(value, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = strings.ToUpper(string(r)) + strings.ToLower(w[size:])
	}
	return strings.Join(words, " ")
}
