package extract

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// Preprocess normalizes text before classification: carriage returns become
// newlines, characters outside ASCII and Latin-1/Latin Extended-A are
// blanked, space runs collapse and at most one empty line is kept.
func Preprocess(text string) string {
	if text == "" {
		return ""
	}

	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.Map(func(r rune) rune {
		if keepRune(r) {
			return r
		}
		return ' '
	}, text)
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func keepRune(r rune) bool {
	switch {
	case r <= 0x7F:
		return true
	case r >= 0xC0 && r <= 0x17F:
		return true
	case r == 'ª', r == 'º', r == '—':
		return true
	}
	return unicode.IsSpace(r)
}
