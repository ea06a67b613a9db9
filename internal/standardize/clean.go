package standardize

import (
	"regexp"
	"strings"
)

var (
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	whitespace   = regexp.MustCompile(`\s{2,}`)
)

var charReplacer = strings.NewReplacer(
	"–", "-", // en dash
	"—", "-", // em dash
	"−", "-", // minus sign
	"​", "", // zero-width space
	"‌", "", // zero-width non-joiner
	"‍", "", // zero-width joiner
	"‎", "", // left-to-right mark
	"‏", "", // right-to-left mark
	"\uFEFF", "", // byte order mark
	"\r", " ",
	"\n", " ",
	"\t", " ",
)

// CleanText strips control and zero-width characters, normalizes dash
// variants, folds newlines and tabs into spaces, and collapses runs of
// whitespace.
func CleanText(s string) string {
	s = charReplacer.Replace(s)
	s = controlChars.ReplaceAllString(s, "")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Truncate caps a string at max characters, matching the column widths in
// the durable schema.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
